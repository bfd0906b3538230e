package web

import (
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/timeless/internal/attachment"
	"github.com/hpungsan/timeless/internal/capsule"
	"github.com/hpungsan/timeless/internal/config"
	"github.com/hpungsan/timeless/internal/errors"
	"github.com/hpungsan/timeless/internal/gateway"
	"github.com/hpungsan/timeless/internal/ops"
	"github.com/hpungsan/timeless/internal/store"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	store    *store.Store
	builder  *ops.Builder
	gen      gateway.Generator
	cfg      *config.Config
	logger   *slog.Logger
	drafts   *attachment.Drafts
	renderer *Renderer
}

// HandleHome handles GET /: the intro on first visit, else the list.
func (h *Handlers) HandleHome(w http.ResponseWriter, r *http.Request) {
	if !h.store.Visited(r.Context()) {
		http.Redirect(w, r, "/intro", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/capsules", http.StatusFound)
}

// HandleIntro handles GET /intro: the welcome page and plan picker.
func (h *Handlers) HandleIntro(w http.ResponseWriter, r *http.Request) {
	plan := ops.GetPlan(r.Context(), h.store)
	h.renderer.renderPage(w, r, "intro", IntroPageData{
		PageData:    h.renderer.page("Welcome to Timeless", "plans", plan.Plan),
		Plans:       ops.PlanCatalog,
		LetterPrice: plan.LetterPrice,
		Visited:     plan.Visited,
	})
}

// HandleStart handles POST /intro/start: pick a plan and leave the intro.
func (h *Handlers) HandleStart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	out, err := ops.Start(r.Context(), h.store, r.FormValue("plan"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.finish(w, r, "/capsules", http.StatusOK, out)
}

// HandleSetPlan handles POST /plan: change plan without the intro.
func (h *Handlers) HandleSetPlan(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	out, err := ops.SetPlan(r.Context(), h.store, r.FormValue("plan"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.finish(w, r, "/intro", http.StatusOK, out)
}

// HandleWelcomeSong handles GET /welcome-song. A missing song is not an error.
func (h *Handlers) HandleWelcomeSong(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, ops.WelcomeSong(r.Context(), h.gen, h.logger))
}

// HandleList handles GET /capsules: capsules ordered by delivery date.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := ops.ListInput{
		Method: q.Get("method"),
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	}

	filter := q.Get("filter")
	switch filter {
	case "sealed":
		input.Sealed = ptrBool(true)
	case "drafts":
		input.Sealed = ptrBool(false)
	case "due":
		input.DueOnly = true
	case "":
	default:
		h.renderer.renderError(w, r, errors.NewInvalidRequest("filter must be one of: sealed, drafts, due"))
		return
	}

	result, err := ops.List(h.store, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData:   h.renderer.page("Your Time Capsules", "capsules", h.store.Plan(r.Context())),
		Items:      result.Items,
		Pagination: result.Pagination,
		Method:     input.Method,
		Filter:     filter,
		Notice:     persistNotice(h.store),
	})
}

// HandleNew handles GET /capsules/new: the create form.
func (h *Handlers) HandleNew(w http.ResponseWriter, r *http.Request) {
	method := capsule.MethodDigital
	if m, ok := capsule.ParseMethod(r.URL.Query().Get("method")); ok {
		method = m
	}
	plan := h.store.Plan(r.Context())

	h.renderer.renderPage(w, r, "create", CreatePageData{
		PageData:  h.renderer.page("Create a Time Capsule", "create", plan),
		Method:    method,
		SaveLabel: ops.SaveLabel(method, plan),
		MinDate:   time.Now().UTC().AddDate(0, 0, 1).Format(capsule.DateLayout),
		MaxBytes:  h.cfg.MaxAttachmentBytes,
		Fallback:  gateway.MessageFallback,
	})
}

// HandleCreate handles POST /capsules: multipart create form.
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	// Attachment and cover upload plus form fields
	r.Body = http.MaxBytesReader(w, r.Body, 2*h.cfg.MaxAttachmentBytes+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil && !stderrors.Is(err, http.ErrNotMultipart) {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	input := ops.CreateInput{
		Method:           r.FormValue("method"),
		RecipientName:    r.FormValue("recipient_name"),
		RecipientEmail:   r.FormValue("recipient_email"),
		RecipientAddress: r.FormValue("recipient_address"),
		DeliveryDate:     r.FormValue("delivery_date"),
		Message:          r.FormValue("message"),
		CoverChoice:      r.FormValue("cover_choice"),
	}

	// A finished recording takes the slot unless a file was also chosen
	att, err := h.formFile(r, "attachment")
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	// The draft survives a failed create so a corrected resubmit keeps it
	recordingID := r.FormValue("recording_id")
	if recordingID != "" {
		slot, err := h.drafts.Get(recordingID)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("unknown or expired recording; record again"))
			return
		}
		if rec := slot.Recorder(); rec != nil && rec.Recording() {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("recording is still in progress; stop it before saving"))
			return
		}
		if att == nil {
			att = slot.File()
		}
	}
	input.Attachment = att

	cover, err := h.formFile(r, "cover")
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if cover != nil {
		input.UploadedCover = attachment.DataURL(cover)
	}

	out, err := h.builder.Create(r.Context(), input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if recordingID != "" {
		h.drafts.Take(recordingID)
	}
	h.finish(w, r, "/capsules/"+out.ID, http.StatusCreated, out)
}

// formFile reads an optional uploaded file.
func (h *Handlers) formFile(r *http.Request, field string) (*capsule.AttachmentFile, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	file, header, err := r.FormFile(field)
	if stderrors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInvalidRequest("invalid " + field + " upload")
	}
	defer file.Close()
	return attachment.FromReader(header.Filename, header.Header.Get("Content-Type"), file, h.cfg.MaxAttachmentBytes)
}

// HandleDetail handles GET /capsules/{id}: view a single capsule.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	include := wantsJSON(r)
	view, err := ops.Fetch(h.store, ops.FetchInput{ID: r.PathValue("id"), IncludeAttachment: &include})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, view)
		return
	}

	data := DetailPageData{
		PageData:     h.renderer.page(view.RecipientName, "capsules", h.store.Plan(r.Context())),
		Capsule:      view,
		RenderedHTML: h.renderer.renderMarkdown(view.Message),
		Notice:       persistNotice(h.store),
	}
	if c, err := h.store.Get(view.ID); err == nil {
		data.Attachment = c.Attachment()
	}
	h.renderer.renderPage(w, r, "detail", data)
}

// HandleAttachment handles GET /capsules/{id}/attachment: the raw media.
func (h *Handlers) HandleAttachment(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.Get(r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	f := c.Attachment()
	if f == nil {
		h.renderer.renderError(w, r, errors.NewNotFound("attachment for capsule "+c.ID))
		return
	}
	data, err := attachment.Decode(f)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", f.Type)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", `inline; filename="`+strings.ReplaceAll(f.Name, `"`, "")+`"`)
	_, _ = w.Write(data)
}

// HandleUpdate handles POST /capsules/{id}: edit an unsealed capsule.
func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	input := ops.UpdateInput{ID: r.PathValue("id")}
	if r.Form.Has("recipient_name") {
		v := r.FormValue("recipient_name")
		input.RecipientName = &v
	}
	if r.Form.Has("message") {
		v := r.FormValue("message")
		input.Message = &v
	}

	out, err := ops.Update(r.Context(), h.store, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.finish(w, r, "/capsules/"+out.ID, http.StatusOK, out)
}

// HandleRequestSeal handles POST /capsules/{id}/seal: ask before sealing.
func (h *Handlers) HandleRequestSeal(w http.ResponseWriter, r *http.Request) {
	intent, err := ops.RequestSeal(h.store, r.PathValue("id"))
	h.renderIntent(w, r, intent, err)
}

// HandleRequestDelete handles POST /capsules/{id}/delete: ask before deleting.
func (h *Handlers) HandleRequestDelete(w http.ResponseWriter, r *http.Request) {
	intent, err := ops.RequestDelete(h.store, r.PathValue("id"))
	h.renderIntent(w, r, intent, err)
}

func (h *Handlers) renderIntent(w http.ResponseWriter, r *http.Request, intent *ops.IntentOutput, err error) {
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusAccepted, intent)
		return
	}

	data := ConfirmPageData{
		PageData: h.renderer.page("Please confirm", "capsules", h.store.Plan(r.Context())),
		Intent:   intent,
	}
	if c, err := h.store.Get(intent.ID); err == nil {
		data.Recipient = c.RecipientName
	}
	h.renderer.renderPage(w, r, "confirm", data)
}

// HandleConfirm handles POST /confirm: run a pending seal or delete.
func (h *Handlers) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	out, err := ops.Confirm(r.Context(), h.store, r.FormValue("token"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	target := "/capsules"
	if out.Sealed {
		target = "/capsules/" + out.ID
	}
	h.finish(w, r, target, http.StatusOK, out)
}

// HandleCancel handles POST /cancel: drop a pending seal or delete.
func (h *Handlers) HandleCancel(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	out := ops.Cancel(h.store, r.FormValue("token"))
	target := "/capsules"
	if id := r.FormValue("id"); id != "" && !strings.ContainsAny(id, "/?#") {
		target = "/capsules/" + id
	}
	h.finish(w, r, target, http.StatusOK, out)
}

// HandleGenerateMessage handles POST /messages/generate: AI message draft.
func (h *Handlers) HandleGenerateMessage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	out, err := ops.GenerateMessage(r.Context(), h.gen, h.logger, ops.GenerateMessageInput{Prompt: r.FormValue("prompt")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleRecordingStart handles POST /recordings: open a recording draft.
// The browser has already been granted the microphone.
func (h *Handlers) HandleRecordingStart(w http.ResponseWriter, r *http.Request) {
	id, slot, err := h.drafts.New()
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if _, err := slot.BeginRecording(r.Context(), attachment.GrantedMicrophone{}, h.cfg.MaxAttachmentBytes, nil); err != nil {
		h.drafts.Take(id)
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// HandleRecordingSegment handles POST /recordings/{id}/segments: one
// MediaRecorder chunk as the raw request body.
func (h *Handlers) HandleRecordingSegment(w http.ResponseWriter, r *http.Request) {
	slot, err := h.drafts.Get(r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	rec := slot.Recorder()
	if rec == nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("recording is not in progress"))
		return
	}

	n, err := io.Copy(rec, http.MaxBytesReader(w, r.Body, h.cfg.MaxAttachmentBytes+1))
	if err != nil {
		h.renderer.renderError(w, r, asUploadError(err, h.cfg.MaxAttachmentBytes))
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"bytes":   n,
		"elapsed": attachment.FormatElapsed(rec.Elapsed()),
	})
}

// HandleRecordingStop handles POST /recordings/{id}/stop.
func (h *Handlers) HandleRecordingStop(w http.ResponseWriter, r *http.Request) {
	slot, err := h.drafts.Get(r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	rec, err := slot.FinishRecording()
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"id":      r.PathValue("id"),
		"name":    rec.File.Name,
		"label":   rec.Label,
		"type":    rec.File.Type,
		"seconds": int(rec.Duration / time.Second),
	})
}

// HandleRecordingDiscard handles DELETE /recordings/{id}.
func (h *Handlers) HandleRecordingDiscard(w http.ResponseWriter, r *http.Request) {
	h.drafts.Take(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// finish completes a state-changing request: HX-Redirect for htmx, the
// result for JSON clients, otherwise a redirect.
func (h *Handlers) finish(w http.ResponseWriter, r *http.Request, target string, status int, result any) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, status, result)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// asUploadError maps a body read failure to a Timeless error.
func asUploadError(err error, maxBytes int64) error {
	var tooBig *http.MaxBytesError
	if stderrors.As(err, &tooBig) {
		return errors.NewAttachmentTooLarge(maxBytes, tooBig.Limit)
	}
	return err
}

// persistNotice warns when the last save did not reach disk.
func persistNotice(s *store.Store) string {
	if s.LastPersistError() != nil {
		return "Your latest changes could not be saved to disk and will be lost when Timeless exits."
	}
	return ""
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

func ptrBool(b bool) *bool { return &b }

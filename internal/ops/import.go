package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hpungsan/timeless/internal/capsule"
	"github.com/hpungsan/timeless/internal/config"
	"github.com/hpungsan/timeless/internal/errors"
	"github.com/hpungsan/timeless/internal/store"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError ImportMode = "error" // import nothing if any line fails
	ImportModeSkip  ImportMode = "skip"  // import what can be imported
)

// maxImportLine bounds one JSONL line; attachments are inline.
const maxImportLine = 64 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes one line that was not imported.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type importLine struct {
	line    int
	capsule *capsule.Capsule
}

// Import reads capsules from a JSONL export file. Seal state, dates, and
// ids are restored as written.
func Import(ctx context.Context, s *store.Store, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeSkip {
		return nil, errors.NewInvalidRequest("mode must be one of: error, skip")
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if errors.As(err).Code != errors.ErrInternal {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	lines, problems := parseExport(file)

	// Collisions with existing capsules or earlier lines
	var ready []importLine
	seen := make(map[string]bool)
	for _, l := range lines {
		id := l.capsule.ID
		if _, err := s.Get(id); err == nil || seen[id] {
			problems = append(problems, ImportError{
				Line:    l.line,
				ID:      id,
				Code:    "ID_COLLISION",
				Message: fmt.Sprintf("capsule with id %q already exists", id),
			})
			continue
		}
		seen[id] = true
		ready = append(ready, l)
	}

	if input.Mode == ImportModeError && len(problems) > 0 {
		return &ImportOutput{Imported: 0, Skipped: 0, Errors: problems}, nil
	}

	out := &ImportOutput{Errors: problems, Skipped: len(problems)}
	for _, l := range ready {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewInternal(fmt.Errorf("import cancelled: %w", err))
		}
		if err := s.Append(ctx, l.capsule); err != nil {
			out.Errors = append(out.Errors, ImportError{
				Line:    l.line,
				ID:      l.capsule.ID,
				Code:    string(errors.As(err).Code),
				Message: errors.As(err).Message,
			})
			out.Skipped++
			continue
		}
		out.Imported++
	}
	if out.Errors == nil {
		out.Errors = []ImportError{}
	}
	return out, nil
}

// parseExport decodes every capsule line, skipping the header.
func parseExport(r io.Reader) ([]importLine, []ImportError) {
	var lines []importLine
	var problems []ImportError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var header ExportHeader
		if err := json.Unmarshal(raw, &header); err == nil && header.TimelessExport {
			if header.SchemaVersion > ExportSchemaVersion {
				problems = append(problems, ImportError{
					Line:    lineNum,
					Code:    "UNSUPPORTED_VERSION",
					Message: fmt.Sprintf("export schema version %d is newer than supported %d", header.SchemaVersion, ExportSchemaVersion),
				})
			}
			continue
		}

		var record capsule.Record
		if err := json.Unmarshal(raw, &record); err != nil {
			problems = append(problems, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		c, err := record.ToCapsule()
		if err != nil {
			problems = append(problems, ImportError{
				Line:    lineNum,
				ID:      record.ID,
				Code:    "INVALID_RECORD",
				Message: err.Error(),
			})
			continue
		}
		lines = append(lines, importLine{line: lineNum, capsule: c})
	}

	if err := scanner.Err(); err != nil {
		problems = append(problems, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return lines, problems
}

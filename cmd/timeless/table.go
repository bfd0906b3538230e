package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hpungsan/timeless/internal/capsule"
	"github.com/hpungsan/timeless/internal/ops"
)

// tableExcerptChars keeps rows on one line in a typical terminal.
const tableExcerptChars = 40

// renderCapsules draws list output as a table for terminals.
func renderCapsules(out *ops.ListOutput) string {
	if len(out.Items) == 0 {
		return "No capsules yet. Create one with: timeless create --to NAME --date YYYY-MM-DD"
	}

	title := cases.Title(language.English)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Recipient", "Delivery", "Method", "Status", "Message"})
	for _, item := range out.Items {
		status := title.String(item.Status)
		if item.Due {
			status += " (due)"
		}
		tw.AppendRow(table.Row{
			item.ID,
			item.RecipientName,
			item.DeliveryDate,
			title.String(string(item.DeliveryMethod)),
			status,
			capsule.Excerpt(item.Excerpt, tableExcerptChars),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	p := out.Pagination
	if p.HasMore {
		tw.AppendFooter(table.Row{fmt.Sprintf("%d of %d", p.Offset+len(out.Items), p.Total)})
	}
	return tw.Render()
}

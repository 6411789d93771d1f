package bot

import (
	"fmt"
	"strings"

	"github.com/shohabbosdev/registrybot/internal/paging"
	"github.com/shohabbosdev/registrybot/internal/registry"
)

// splitLimit stays under Telegram's 4096-char message ceiling with
// headroom for Markdown entities.
const splitLimit = 3900

// escapeMarkdown neutralizes the Markdown control characters that
// occur in sheet data.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		"*", `\*`,
		"_", `\_`,
		"`", "\\`",
	)
	return r.Replace(s)
}

// formatCard renders one record. Contract fields only appear when the
// record carries them.
func formatCard(r registry.Record) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("👤 *%s*\n", escapeMarkdown(r.FullName)))
	if r.HemisID != "" {
		sb.WriteString(fmt.Sprintf("🆔 HEMIS ID: `%s`\n", r.HemisID))
	}
	if r.PersonalNo != "" {
		sb.WriteString(fmt.Sprintf("🔢 JSHSHIR: `%s`\n", r.PersonalNo))
	}
	if r.Faculty != "" {
		sb.WriteString(fmt.Sprintf("🏛 Fakultet: %s\n", escapeMarkdown(r.Faculty)))
	}
	if r.Specialty != "" {
		sb.WriteString(fmt.Sprintf("🎓 Mutaxassislik: %s\n", escapeMarkdown(r.Specialty)))
	}
	if r.Group != "" {
		sb.WriteString(fmt.Sprintf("👥 Guruh: %s\n", escapeMarkdown(r.Group)))
	}
	if r.Status != "" {
		sb.WriteString(fmt.Sprintf("📌 Holati: %s\n", escapeMarkdown(r.Status)))
	}
	if r.Contract != nil {
		if r.Contract.Position != "" {
			sb.WriteString(fmt.Sprintf("💼 Lavozim: %s\n", escapeMarkdown(r.Contract.Position)))
		}
		if r.Contract.Organization != "" {
			sb.WriteString(fmt.Sprintf("🏢 Tashkilot: %s\n", escapeMarkdown(r.Contract.Organization)))
		}
		if r.Contract.Date != "" {
			sb.WriteString(fmt.Sprintf("📅 Shartnoma sanasi: %s\n", escapeMarkdown(r.Contract.Date)))
		}
	}
	return sb.String()
}

func formatResultsBlock(records []registry.Record) string {
	cards := make([]string, 0, len(records))
	for _, r := range records {
		cards = append(cards, formatCard(r))
	}
	return strings.Join(cards, "\n")
}

// formatPageHeader is the stable headline above every page of one
// search: whole-result counts plus the cursor position.
func formatPageHeader(view paging.PageView) string {
	return fmt.Sprintf(
		"📋 *Jami topilgan talabalar soni:* %d ta\n"+
			"🟢 *my.mehnat.uz da mehnat shartnomasiga ega talabalar soni:* %d ta (%v%%)\n"+
			"📄 *Sahifa:* %d/%d\n\n",
		view.Summary.Total, view.Summary.Active, view.Summary.Percent,
		view.Page, view.TotalPages,
	)
}

func formatGroupedStats(total registry.Summary, groups []registry.GroupSummary) string {
	lines := []string{
		"📊 *Statistika (yo'nalishlar bo'yicha):*\n",
		fmt.Sprintf("👥 *Jami talabalar soni:* %d ta", total.Total),
		fmt.Sprintf("🟢 *Faol shartnomaga ega talabalar soni:* %d ta (%v%%)\n", total.Active, total.Percent),
	}
	for _, g := range groups {
		lines = append(lines, fmt.Sprintf("✅ *%s:* jami %d | faol: %d (%v%%)",
			escapeMarkdown(g.Label), g.Total, g.Active, g.Percent))
	}
	return strings.Join(lines, "\n")
}

// splitText breaks a long message at line boundaries so every part
// fits the transport limit. Lines longer than the limit are split hard.
func splitText(text string, limit int) []string {
	if limit <= 0 {
		limit = splitLimit
	}
	if len(text) <= limit {
		return []string{text}
	}
	var parts []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if cur.Len() > 0 {
				parts = append(parts, cur.String())
				cur.Reset()
			}
			parts = append(parts, line[:limit])
			line = line[limit:]
		}
		if cur.Len()+len(line) > limit {
			parts = append(parts, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

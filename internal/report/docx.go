package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"

	"github.com/MuXiu1997/ass-processor/internal/batch"
	"github.com/MuXiu1997/ass-processor/internal/logger"
)

const (
	fontName = "Times New Roman"
	fontSize = 13

	timeLayout = "2006-01-02 15:04:05"
)

var (
	reHeading  = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	reBold     = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBullet   = regexp.MustCompile(`^[\-\*]\s+(.+)$`)
	reNumbered = regexp.MustCompile(`^\d+\.\s+(.+)$`)
)

// Summary is everything the report needs about one finished batch.
type Summary struct {
	Title        string
	StartedAt    time.Time
	EndedAt      time.Time
	Results      []batch.Result
	NotAttempted int
}

// Write renders the summary as a styled .docx at outputPath.
func Write(s Summary, outputPath string) error {
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := markdownToDocx(s.Title, s.markdown(), outputPath); err != nil {
		return fmt.Errorf("write report %s: %w", outputPath, err)
	}
	return nil
}

func (s Summary) markdown() string {
	succeeded, failed := 0, 0
	for _, r := range s.Results {
		if r.OK {
			succeeded++
		} else {
			failed++
		}
	}

	var b strings.Builder
	b.WriteString("## Outcome\n\n")
	fmt.Fprintf(&b, "- **Started**: %s\n", s.StartedAt.Format(timeLayout))
	fmt.Fprintf(&b, "- **Finished**: %s\n", s.EndedAt.Format(timeLayout))
	fmt.Fprintf(&b, "- **Succeeded**: %d\n", succeeded)
	fmt.Fprintf(&b, "- **Failed**: %d\n", failed)
	fmt.Fprintf(&b, "- **Not attempted**: %d\n", s.NotAttempted)

	b.WriteString("\n## Jobs\n\n")
	for i, r := range s.Results {
		if r.OK {
			fmt.Fprintf(&b, "%d. **%s** OK, wrote %s\n", i+1, r.Name, r.OutputPath)
			continue
		}
		fmt.Fprintf(&b, "%d. **%s** FAILED: %s\n", i+1, r.Name, logger.FormatError(r.Err))
	}
	if s.NotAttempted > 0 {
		fmt.Fprintf(&b, "\n%d job(s) were not attempted because an earlier job failed.\n", s.NotAttempted)
	}

	return b.String()
}

// markdownToDocx converts markdown text to a styled docx file.
func markdownToDocx(title, markdown, outputPath string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return err
	}

	addStyledRun(doc.AddParagraph(""), title, true, 16)

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || trimmed == "---" {
			continue
		}

		if m := reHeading.FindStringSubmatch(trimmed); m != nil {
			addStyledRun(doc.AddParagraph(""), m[2], true, headingSize(len(m[1])))
			continue
		}

		if m := reBullet.FindStringSubmatch(trimmed); m != nil {
			addRichText(doc.AddParagraph(""), "• "+m[1])
			continue
		}

		if reNumbered.MatchString(trimmed) {
			addRichText(doc.AddParagraph(""), trimmed)
			continue
		}

		addRichText(doc.AddParagraph(""), trimmed)
	}

	return doc.SaveTo(outputPath)
}

func headingSize(level int) uint64 {
	switch level {
	case 1:
		return 16
	case 2:
		return 15
	case 3:
		return 14
	default:
		return fontSize
	}
}

func addStyledRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	text = cleanMarkdownInline(text)
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}

func addRichText(p *docx.Paragraph, text string) {
	parts := reBold.Split(text, -1)
	matches := reBold.FindAllStringSubmatch(text, -1)

	for i, part := range parts {
		if part != "" {
			clean := cleanMarkdownInline(part)
			p.AddText(clean).Font(fontName).Size(fontSize).Color("000000")
		}
		if i < len(matches) {
			clean := cleanMarkdownInline(matches[i][1])
			p.AddText(clean).Font(fontName).Size(fontSize).Color("000000").Bold(true)
		}
	}
}

func cleanMarkdownInline(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	s = strings.ReplaceAll(s, "`", "")
	return s
}

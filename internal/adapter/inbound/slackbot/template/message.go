package template

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	slackapi "github.com/slack-go/slack"

	"github.com/jonny/askuser-bot/internal/domain/model"
)

// Block Kit limits that are tighter than the limits the sessions enforce.
const (
	maxSectionText = 3000
	maxFieldText   = 2000
	maxOptionText  = 75
	maxOptionValue = 150
	maxPlaceholder = 150
	maxModalTitle  = 24
	maxButtonText  = 75
)

// ControlsBlockID is the block holding a message's buttons or select menu.
const ControlsBlockID = "controls"

// BuildMessageBlocks renders the top level blocks of msg. Panel messages keep
// their content and controls inside the attachment from BuildPanelAttachment
// so the controls sit under the coloured bar.
func BuildMessageBlocks(msg model.Message) []slackapi.Block {
	if msg.Panel != nil {
		return nil
	}
	blocks := []slackapi.Block{markdownSection(msg.Text)}
	if controls := buildControls(msg); controls != nil {
		blocks = append(blocks, controls)
	}
	return blocks
}

// BuildPanelAttachment renders msg.Panel, plus msg's controls, as a coloured
// attachment. ok is false for messages without a panel.
func BuildPanelAttachment(msg model.Message) (slackapi.Attachment, bool) {
	p := msg.Panel
	if p == nil {
		return slackapi.Attachment{}, false
	}

	head := "*" + p.Title + "*"
	if p.Description != "" {
		head += "\n" + p.Description
	}
	blocks := []slackapi.Block{markdownSection(head)}

	var inline []*slackapi.TextBlockObject
	flush := func() {
		if len(inline) > 0 {
			blocks = append(blocks, slackapi.NewSectionBlock(nil, inline, nil))
			inline = nil
		}
	}
	for _, f := range p.Fields {
		text := fmt.Sprintf("*%s*\n%s", f.Name, f.Value)
		if f.Inline {
			inline = append(inline, markdown(truncate(text, maxFieldText)))
			continue
		}
		flush()
		blocks = append(blocks, markdownSection(text))
	}
	flush()

	if footer := footerText(p.Footer, p.Timestamp); footer != "" {
		blocks = append(blocks, slackapi.NewContextBlock("", markdown(footer)))
	}
	if controls := buildControls(msg); controls != nil {
		blocks = append(blocks, controls)
	}

	return slackapi.Attachment{
		Color:    p.Color,
		Fallback: p.Title,
		Blocks:   slackapi.Blocks{BlockSet: blocks},
	}, true
}

func footerText(footer string, ts time.Time) string {
	var parts []string
	if footer != "" {
		parts = append(parts, footer)
	}
	if !ts.IsZero() {
		parts = append(parts, fmt.Sprintf("<!date^%d^{date_short_pretty} {time}|%s>",
			ts.Unix(), ts.UTC().Format(time.RFC1123)))
	}
	return strings.Join(parts, " • ")
}

// buildControls returns nil when msg carries nothing clickable.
func buildControls(msg model.Message) *slackapi.ActionBlock {
	if !msg.HasControls() {
		return nil
	}

	// A menu comes before the buttons that act on it.
	var elements []slackapi.BlockElement
	if s := msg.Select; s != nil {
		elements = append(elements, buildSelect(s))
	}
	for _, b := range msg.Buttons {
		btn := slackapi.NewButtonBlockElement(b.ID, b.ID, plain(truncate(b.Label, maxButtonText)))
		btn.Style = slackapi.Style(b.Style)
		elements = append(elements, btn)
	}
	return slackapi.NewActionBlock(ControlsBlockID, elements...)
}

func buildSelect(s *model.Select) slackapi.BlockElement {
	opts := make([]*slackapi.OptionBlockObject, 0, len(s.Options))
	for _, o := range s.Options {
		opts = append(opts, slackapi.NewOptionBlockObject(truncate(o, maxOptionValue), plain(truncate(o, maxOptionText)), nil))
	}
	placeholder := plain(truncate(s.Placeholder, maxPlaceholder))

	if !s.Multi {
		return slackapi.NewOptionsSelectBlockElement(slackapi.OptTypeStatic, placeholder, s.ID, opts...)
	}
	multi := slackapi.NewOptionsMultiSelectBlockElement(slackapi.MultiOptTypeStatic, placeholder, s.ID, opts...)
	if s.MaxSelections > 0 {
		max := s.MaxSelections
		multi.MaxSelectedItems = &max
	}
	return multi
}

func markdownSection(text string) *slackapi.SectionBlock {
	return slackapi.NewSectionBlock(markdown(truncate(text, maxSectionText)), nil, nil)
}

func markdown(text string) *slackapi.TextBlockObject {
	return slackapi.NewTextBlockObject(slackapi.MarkdownType, text, false, false)
}

func plain(text string) *slackapi.TextBlockObject {
	return slackapi.NewTextBlockObject(slackapi.PlainTextType, text, false, false)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

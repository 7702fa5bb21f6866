package template

import (
	slackapi "github.com/slack-go/slack"

	"github.com/jonny/askuser-bot/internal/domain/model"
)

// FormBlockID is the input block of every form; submissions are read from it.
const FormBlockID = "form_input"

// BuildFormView renders form as a modal. The form id travels as the callback
// id so submissions and closes correlate back to the waiting session.
func BuildFormView(form model.Form) slackapi.ModalViewRequest {
	var placeholder *slackapi.TextBlockObject
	if form.Placeholder != "" {
		placeholder = plain(truncate(form.Placeholder, maxPlaceholder))
	}

	input := slackapi.NewPlainTextInputBlockElement(placeholder, form.FieldID)
	input.Multiline = form.Multiline

	block := slackapi.NewInputBlock(FormBlockID, plain(form.Label), nil, input)
	block.Optional = form.Optional

	return slackapi.ModalViewRequest{
		Type:          slackapi.VTModal,
		Title:         plain(truncate(form.Title, maxModalTitle)),
		Submit:        plain("Submit"),
		Close:         plain("Cancel"),
		Blocks:        slackapi.Blocks{BlockSet: []slackapi.Block{block}},
		CallbackID:    form.ID,
		NotifyOnClose: form.NotifyOnClose,
	}
}

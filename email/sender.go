package email

import (
	"github.com/cyverse-de/messaging/v9"
	"github.com/gist4u/notifications/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Publisher describes the part of the messaging client used to hand email requests to
// the mailer service.
type Publisher interface {
	PublishEmailRequest(request *messaging.EmailRequest) error
}

// Sender builds email requests and publishes them to the mailer.
type Sender struct {
	publisher   Publisher
	fromAddress string
	fromName    string
	log         *logrus.Entry
}

// NewSender returns a new email sender.
func NewSender(publisher Publisher, fromAddress, fromName string, log *logrus.Entry) *Sender {
	return &Sender{
		publisher:   publisher,
		fromAddress: fromAddress,
		fromName:    fromName,
		log:         log,
	}
}

// Send publishes one email request for a notification. The rendered fallback body
// rides along in the template values so the mailer can still produce a message when
// its template lookup fails.
func (s *Sender) Send(notificationType, recipient, language string, context map[string]interface{}) error {
	wrapMsg := "unable to publish the email request"

	template, err := Lookup(notificationType)
	if err != nil {
		return err
	}
	language = languageOrDefault(language)

	// Assemble the template values.
	values := make(map[string]interface{}, len(context)+2)
	for name, value := range context {
		values[name] = value
	}
	values["language"] = language
	values["fallback_body"] = template.FallbackBody(language, context)

	// Build and publish the request.
	request := &messaging.EmailRequest{
		TemplateName:   template.Name,
		TemplateValues: values,
		Subject:        template.Subject(language, context),
		ToAddress:      recipient,
		FromAddress:    s.fromAddress,
		FromName:       s.fromName,
	}
	err = s.publisher.PublishEmailRequest(request)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	s.log.WithFields(logrus.Fields{
		"type":      notificationType,
		"recipient": recipient,
		"language":  language,
	}).Info("email request published")

	return nil
}

// languageOrDefault falls back to English for unknown language codes.
func languageOrDefault(language string) string {
	if language == model.LanguageFrench {
		return model.LanguageFrench
	}
	return model.LanguageEnglish
}

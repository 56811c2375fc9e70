// Package email renders notification subjects and fallback bodies and hands the
// messages to the mailer service.
package email

import (
	"fmt"
	"strings"

	"github.com/gist4u/notifications/model"
)

// Template describes one notification type's email content: the downstream mailer
// template key, language-specific subject variants, and plain-text fallback bodies
// that guarantee a delivery attempt even when the mailer's template lookup fails.
// Subjects and bodies may reference context values as {name} placeholders.
type Template struct {
	Name      string
	SubjectEN string
	SubjectFR string
	BodyEN    string
	BodyFR    string
}

var templateFor = map[string]*Template{
	"welcome": {
		Name:      "welcome",
		SubjectEN: "Welcome to Gist4U!",
		SubjectFR: "Bienvenue sur Gist4U !",
		BodyEN:    "Welcome to Gist4U, {user_name}!\n\nWe're thrilled to have you. Get ready to discover opportunities!",
		BodyFR:    "Bienvenue sur Gist4U, {user_name} !\n\nNous sommes ravis de vous accueillir. Préparez-vous à découvrir des opportunités !",
	},
	"onboarding_complete": {
		Name:      "onboarding_complete",
		SubjectEN: "You're All Set! Start Exploring",
		SubjectFR: "Vous êtes prêt ! Commencez à explorer",
		BodyEN:    "You're all set, {user_name}!\n\nThe long chase is over. We're bringing gists and opportunities right to your door. Start exploring!",
		BodyFR:    "Vous êtes prêt, {user_name} !\n\nLa longue course est terminée. Nous apportons les gists et opportunités directement à votre porte. Commencez à explorer !",
	},
	"mentor_request_mentee": {
		Name:      "mentor_request_mentee",
		SubjectEN: "Your Mentor Request Has Been Received!",
		SubjectFR: "Votre demande de mentorat a été reçue !",
		BodyEN:    "Hi {mentee_name},\n\nWe've received your request to connect with {mentor_name}. We'll process it within 24 hours.\n\nBest,\nGist4U Team",
		BodyFR:    "Bonjour {mentee_name},\n\nNous avons reçu votre demande de mentorat avec {mentor_name}. Nous la traiterons dans les 24 heures.\n\nCordialement,\nL'équipe Gist4U",
	},
	"mentor_request_mentor": {
		Name:      "mentor_request_mentor",
		SubjectEN: "You Have a New Mentee Request!",
		SubjectFR: "Vous avez une nouvelle demande de mentorat !",
		BodyEN:    "Hey {mentor_name}!\n\nGreat news - {mentee_name} wants YOU as their mentor! We'll check if they're a good fit and connect you soon.\n\nExciting times!\nGist4U Team",
		BodyFR:    "Salut {mentor_name} !\n\nBonne nouvelle - {mentee_name} vous a choisi comme mentor ! Nous vérifierons si c'est compatible et nous vous mettrons en contact bientôt.\n\nQue l'aventure commence !\nL'équipe Gist4U",
	},
	"pro_article": {
		Name:      "pro_article",
		SubjectEN: "Pro: {headline_short}",
		SubjectFR: "Pro : {headline_short}",
		BodyEN:    "Hi {name},\n\nEXCLUSIVE PRO CONTENT\n\n{headline}\nCategory: {category}\n\n{summary}\n\nThis is exclusive content for Gist4U Pro members only.\n\n---\nGist4U Pro - Never miss an opportunity",
		BodyFR:    "Bonjour {name},\n\nCONTENU EXCLUSIF PRO\n\n{headline}\nCatégorie : {category}\n\n{summary}\n\nCe contenu est réservé aux membres Gist4U Pro.\n\n---\nGist4U Pro - Ne ratez aucune opportunité",
	},
	"pro_welcome": {
		Name:      "pro_welcome",
		SubjectEN: "Welcome to Gist4U Pro!",
		SubjectFR: "Bienvenue sur Gist4U Pro !",
		BodyEN:    "Hi {name},\n\nYour Gist4U Pro subscription is now active. Exclusive gists will land straight in your inbox.\n\nGist4U Team",
		BodyFR:    "Bonjour {name},\n\nVotre abonnement Gist4U Pro est maintenant actif. Les gists exclusifs arriveront directement dans votre boîte mail.\n\nL'équipe Gist4U",
	},
	"pro_renewal": {
		Name:      "pro_renewal",
		SubjectEN: "Your Gist4U Pro Subscription Has Been Renewed",
		SubjectFR: "Votre abonnement Gist4U Pro a été renouvelé",
		BodyEN:    "Hi {name},\n\nThanks for renewing! Your Gist4U Pro subscription is active again.\n\nGist4U Team",
		BodyFR:    "Bonjour {name},\n\nMerci pour votre renouvellement ! Votre abonnement Gist4U Pro est de nouveau actif.\n\nL'équipe Gist4U",
	},
	"subscription_expired": {
		Name:      "subscription_expired",
		SubjectEN: "Your Gist4U Pro Subscription Has Expired",
		SubjectFR: "Votre abonnement Gist4U Pro a expiré",
		BodyEN:    "Hi {name},\n\nYour Gist4U Pro subscription has expired. Renew today so you never miss an opportunity.\n\nGist4U Team",
		BodyFR:    "Bonjour {name},\n\nVotre abonnement Gist4U Pro a expiré. Renouvelez dès aujourd'hui pour ne rater aucune opportunité.\n\nL'équipe Gist4U",
	},
	"admin_new_user": {
		Name:      "admin_new_user",
		SubjectEN: "New User Signup: {user_email}",
		SubjectFR: "Nouvelle inscription : {user_email}",
		BodyEN:    "New user signup!\n\nEmail: {user_email}\nName: {user_name}",
		BodyFR:    "Nouvelle inscription !\n\nEmail : {user_email}\nNom : {user_name}",
	},
	"admin_mentor_request": {
		Name:      "admin_mentor_request",
		SubjectEN: "New Mentor Request: {mentee_name} -> {mentor_name}",
		SubjectFR: "Nouvelle demande de mentorat : {mentee_name} -> {mentor_name}",
		BodyEN:    "New mentor request!\n\nMentee: {mentee_name} ({mentee_email})\nMentor: {mentor_name}\nMessage: {message}",
		BodyFR:    "Nouvelle demande de mentorat !\n\nMentoré : {mentee_name} ({mentee_email})\nMentor : {mentor_name}\nMessage : {message}",
	},
	"admin_sponsor_request": {
		Name:      "admin_sponsor_request",
		SubjectEN: "New {inquiry_type} Request from {name}",
		SubjectFR: "Nouvelle demande {inquiry_type} de {name}",
		BodyEN:    "New {inquiry_type} request!\n\nName: {name}\nEmail: {email}\nPhone: {phone}\nOrganization: {organization}",
		BodyFR:    "Nouvelle demande {inquiry_type} !\n\nNom : {name}\nEmail : {email}\nTéléphone : {phone}\nOrganisation : {organization}",
	},
}

// Lookup returns the template for a notification type. An unknown type is a
// configuration error, reported synchronously so it can't be deferred to send time.
func Lookup(notificationType string) (*Template, error) {
	template, ok := templateFor[notificationType]
	if !ok {
		return nil, fmt.Errorf("unknown email notification type: %s", notificationType)
	}
	return template, nil
}

// substitute replaces {name} placeholders with the corresponding context values.
// Placeholders without a context value are left in place, matching the best-effort
// contract of subject formatting.
func substitute(text string, context map[string]interface{}) string {
	for name, value := range context {
		text = strings.ReplaceAll(text, "{"+name+"}", fmt.Sprintf("%v", value))
	}
	return text
}

// Subject returns the language-specific subject with context values substituted.
// Languages without their own variant fall back to English.
func (t *Template) Subject(language string, context map[string]interface{}) string {
	subject := t.SubjectEN
	if language == model.LanguageFrench && t.SubjectFR != "" {
		subject = t.SubjectFR
	}
	return substitute(subject, context)
}

// FallbackBody returns the language-specific plain-text body with context values
// substituted, so that a delivery attempt is possible even when the mailer's own
// template rendering fails.
func (t *Template) FallbackBody(language string, context map[string]interface{}) string {
	body := t.BodyEN
	if language == model.LanguageFrench && t.BodyFR != "" {
		body = t.BodyFR
	}
	if body == "" {
		body = "Notification from Gist4U"
	}
	return substitute(body, context)
}

package emailsvc

import (
	"encoding/base64"
	"net/http"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core"
)

type sendgridService struct {
	apiKey           string
	defaultFromEmail mail.Address
	subjPrefix       string
	logger           core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(logger core.Logger) core.EmailService {
	return &sendgridService{
		apiKey:           core.Conf.SendgridApiKey,
		defaultFromEmail: core.Conf.DefaultFromEmail,
		subjPrefix:       "[" + core.Conf.AppName + "] ",
		logger:           logger,
	}
}

func (svc sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.sendMessage(msg)
	}
}

func (svc sendgridService) sendMessage(msg *core.EmailMessage) {
	if err := msg.Render(); err != nil {
		svc.logger.Error("rendering email", errors.Wrap(err, "rendering email"))
		return
	}
	if msg.HasRecipients() && (msg.HasContent() || msg.HasAttachments()) {
		if err := svc.send(*msg); err != nil {
			svc.logger.Error("sending email", err)
		}
	}
}

func (svc sendgridService) send(msg core.EmailMessage) error {
	request := sendgrid.GetRequest(svc.apiKey, "/v3/mail/send", "https://api.sendgrid.com")
	request.Method = http.MethodPost
	request.Body = sgmail.GetRequestBody(svc.getSGEmail(msg))

	res, err := sendgrid.API(request)
	if err != nil {
		return errors.Wrap(err, "calling sendgrid API")
	}
	if res.StatusCode >= http.StatusMultipleChoices {
		return errors.Errorf("sendgrid API error: [%d] %s", res.StatusCode, res.Body)
	}
	return nil
}

func (svc sendgridService) getSGEmail(msg core.EmailMessage) *sgmail.SGMailV3 {
	from := sgmail.NewEmail(svc.defaultFromEmail.Name, svc.defaultFromEmail.Address)
	sgEmail := sgmail.NewV3Mail().SetFrom(from).SetReplyTo(from)
	sgEmail.Subject = svc.subjPrefix + msg.Subject

	p := sgmail.NewPersonalization()
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail(to.Name, to.Address))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(sgmail.NewEmail(cc.Name, cc.Address))
	}
	for _, bcc := range msg.Bcc {
		p.AddBCCs(sgmail.NewEmail(bcc.Name, bcc.Address))
	}
	sgEmail.AddPersonalizations(p)

	contents := []*sgmail.Content{sgmail.NewContent("text/plain", msg.TextContent)}
	if msg.TemplateName != "" {
		contents = append(contents, sgmail.NewContent("text/html", msg.HTMLContent))
	}
	sgEmail.AddContent(contents...)

	for _, at := range msg.Attachments {
		sgEmail.AddAttachment(svc.getSGAttachment(at))
	}
	return sgEmail
}

func (svc sendgridService) getSGAttachment(at core.Attachment) *sgmail.Attachment {
	content := base64.StdEncoding.EncodeToString(at.Content.Bytes())
	return sgmail.NewAttachment().
		SetFilename(at.Filename).
		SetType(at.ContentType).
		SetContent(content).
		SetDisposition("attachment")
}

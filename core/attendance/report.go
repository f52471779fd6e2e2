package attendance

import (
	"bytes"
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/minuum/qr-prayer-check/core"
)

const reportTemplate = "attendance_report"

var ErrNoRecipients = errors.New("no report recipients")

// BuildReport summarizes the local days from through to. top limits the rankings (0 for all).
func (svc *Service) BuildReport(ctx context.Context, from, to time.Time, top int) (Report, error) {
	r, _, err := svc.rollupPeriod(ctx, from, to)
	if err != nil {
		return Report{}, errors.Wrap(err, "rolling up logs")
	}

	rep := Report{
		TotalCheckIns:   r.checkIns,
		UniqueAttendees: len(r.people),
		SessionDays:     len(r.sessionDays),
		Daily:           r.dailyCounts(),
		Rankings:        r.rankings(top),
	}
	if !from.IsZero() {
		rep.From = from.In(svc.loc()).Format(DateLayout)
	}
	if !to.IsZero() {
		rep.To = to.In(svc.loc()).Format(DateLayout)
	}
	switch {
	case rep.From != "" && rep.To != "":
		rep.Period = rep.From + " ~ " + rep.To
	case rep.From != "":
		rep.Period = rep.From + " ~"
	case rep.To != "":
		rep.Period = "~ " + rep.To
	default:
		rep.Period = "전체 기간"
	}
	return rep, nil
}

// SendReport emails rep to recipients (the configured admin emails if none), with the period's logs as CSV.
func (svc *Service) SendReport(ctx context.Context, rep Report, recipients ...string) error {
	if len(recipients) == 0 {
		recipients = svc.conf.AdminEmails
	}
	if len(recipients) == 0 {
		return ErrNoRecipients
	}

	to := make([]mail.Address, 0, len(recipients))
	for _, rcp := range recipients {
		addr, err := mail.ParseAddress(rcp)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: "invalid email address: " + rcp})
		}
		to = append(to, *addr)
	}

	msg := &core.EmailMessage{
		To:           to,
		Subject:      "출석 리포트 " + rep.Period,
		TemplateName: reportTemplate,
		TemplateData: rep,
	}
	// surface template errors here, the mailer renders asynchronously
	if err := msg.Render(svc.conf.AppName); err != nil {
		return errors.Wrap(err, "rendering report")
	}

	filter := &QueryFilter{}
	if rep.From != "" {
		day, err := ParseDate(rep.From, svc.loc())
		if err != nil {
			return errors.Wrapf(err, "invalid report start %q", rep.From)
		}
		filter.From = day
	}
	if rep.To != "" {
		day, err := ParseDate(rep.To, svc.loc())
		if err != nil {
			return errors.Wrapf(err, "invalid report end %q", rep.To)
		}
		_, filter.To = DayRange(day, svc.loc())
	}
	var buf bytes.Buffer
	if err := svc.ExportCSV(ctx, filter, &buf); err != nil {
		return errors.Wrap(err, "exporting logs")
	}
	if err := msg.Attach(&buf, "attendance.csv", "text/csv"); err != nil {
		return errors.Wrap(err, "attaching logs")
	}

	svc.mailer.SendMessages(msg)
	return nil
}

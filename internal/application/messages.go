package application

import (
	"fmt"
	"strings"
	"time"
)

const mailDateLayout = "Monday, January 2, 2006 15:04 MST"

func formatMailDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(mailDateLayout)
}

func invitationMessage(settings ProposalSettings, proposal Proposal) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "You have been invited to speak at %s.\n\n", settings.EventName)
	b.WriteString("Candidate dates:\n")
	for _, d := range proposal.CandidateDates {
		fmt.Fprintf(&b, "  - %s\n", formatMailDate(d, settings.Location))
	}
	fmt.Fprintf(&b, "\nPick a date here: %s/invitations/%s\n", strings.TrimRight(settings.ServerURL, "/"), proposal.Token)

	msg := Message{
		To:      []string{proposal.Email},
		Subject: fmt.Sprintf("Invitation to speak at %s", settings.EventName),
		Body:    b.String(),
	}
	if proposal.HostEmail != nil {
		msg.Cc = []string{*proposal.HostEmail}
	}
	return msg
}

func applicationMessage(settings ProposalSettings, proposal Proposal) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) applied for a warmup talk.\n\n", proposal.Speaker, proposal.Email)
	fmt.Fprintf(&b, "Title: %s\nAffiliation: %s\n\n%s\n\n", proposal.Title, proposal.Affiliation, proposal.Abstract)
	b.WriteString("Requested dates:\n")
	for _, d := range proposal.CandidateDates {
		fmt.Fprintf(&b, "  - %s\n", formatMailDate(d, settings.Location))
	}

	return Message{
		To:      append([]string(nil), settings.OrganizerEmails...),
		Subject: fmt.Sprintf("[%s] New warmup application: %s", settings.EventName, proposal.Title),
		Body:    b.String(),
	}
}

func confirmationMessage(settings ProposalSettings, result ConfirmResult) Message {
	event := result.Event
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for speaking at %s.\n\n", settings.EventName)
	fmt.Fprintf(&b, "Date: %s\nTitle: %s\n", formatMailDate(event.Date, settings.Location), event.Title)
	if event.ConfLink != nil {
		fmt.Fprintf(&b, "Video link: %s\n", *event.ConfLink)
	}
	if event.SchedLink != nil {
		fmt.Fprintf(&b, "Speaker notes: %s\n", *event.SchedLink)
	}

	subject := fmt.Sprintf("%s talk confirmed", settings.EventName)
	if !result.First {
		subject = fmt.Sprintf("%s talk details updated", settings.EventName)
	}
	msg := Message{
		Subject: subject,
		Body:    b.String(),
	}
	if event.Email != "" {
		msg.To = []string{event.Email}
	}
	if event.HostEmail != "" {
		msg.Cc = []string{event.HostEmail}
	}
	return msg
}

// ReminderMessage composes the announcement mail for an upcoming talk. Others
// are the remaining unannounced talks shown as a preview.
func ReminderMessage(eventName string, loc *time.Location, recipients []string, event Event, others []Event) Message {
	var b strings.Builder
	kind := "talk"
	if event.Warmup {
		kind = "warmup talk"
	}
	fmt.Fprintf(&b, "Upcoming %s %s: %s\n", eventName, kind, formatMailDate(event.Date, loc))
	fmt.Fprintf(&b, "Speaker: %s (%s)\nTitle: %s\n\n%s\n", event.Speaker, event.Affiliation, event.Title, event.Abstract)
	if event.ConfLink != nil {
		fmt.Fprintf(&b, "\nJoin: %s\n", *event.ConfLink)
	}
	if len(others) > 0 {
		b.WriteString("\nAlso coming up:\n")
		for _, o := range others {
			fmt.Fprintf(&b, "  - %s: %s, %s\n", formatMailDate(o.Date, loc), o.Speaker, o.Title)
		}
	}

	return Message{
		To:      append([]string(nil), recipients...),
		Subject: fmt.Sprintf("[%s] %s: %s", eventName, event.Speaker, event.Title),
		Body:    b.String(),
	}
}

// PrivateReminderMessage composes the organizer-only copy of a reminder. It
// carries the speaker document link, which never goes to the public list.
func PrivateReminderMessage(eventName string, loc *time.Location, recipients []string, event Event, others []Event) Message {
	msg := ReminderMessage(eventName, loc, recipients, event, others)
	msg.Subject = fmt.Sprintf("[%s] Private schedule: %s: %s", eventName, event.Speaker, event.Title)
	if event.SchedLink != nil {
		msg.Body += fmt.Sprintf("\nPrivate schedule: %s\n", *event.SchedLink)
	}
	return msg
}

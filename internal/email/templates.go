package email

import (
	"fmt"
	"strings"
	"time"
)

type ConfirmationEmail struct {
	Subject string
	Body    string
}

type ConfirmationDetails struct {
	ClubName     string
	FacilityName string
	SportName    string
	Code         string
	Date         string
	TimeRange    string
	Attendee     string
	AmountDue    string
	Ticket       string
}

func FormatDate(date time.Time) string {
	return date.Format("Monday, Jan 2, 2006")
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func BuildReservationConfirmation(details ConfirmationDetails) ConfirmationEmail {
	facilityName := orDefault(details.FacilityName, "your facility")
	clubName := orDefault(details.ClubName, "the club")

	subject := fmt.Sprintf("Reservation Confirmed - %s", facilityName)
	if code := strings.TrimSpace(details.Code); code != "" {
		subject = fmt.Sprintf("%s (%s)", subject, code)
	}

	lines := []string{
		fmt.Sprintf("Hi %s, your reservation at %s is confirmed.", orDefault(details.Attendee, "there"), clubName),
		"",
		fmt.Sprintf("Facility: %s", facilityName),
	}
	if sport := strings.TrimSpace(details.SportName); sport != "" {
		lines = append(lines, fmt.Sprintf("Sport: %s", sport))
	}
	lines = append(lines,
		fmt.Sprintf("Date: %s", orDefault(details.Date, "TBD")),
		fmt.Sprintf("Time: %s", orDefault(details.TimeRange, "TBD")),
	)
	if amount := strings.TrimSpace(details.AmountDue); amount != "" {
		lines = append(lines, fmt.Sprintf("Amount due: %s", amount))
	}
	if ticket := strings.TrimSpace(details.Ticket); ticket != "" {
		lines = append(lines, "", "Show this ticket at check-in:", ticket)
	}

	return ConfirmationEmail{
		Subject: subject,
		Body:    strings.Join(lines, "\n"),
	}
}

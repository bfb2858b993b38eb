package outbound

import "fmt"

// Message bodies are deliberately plain; styling is a frontend concern.

func RegistrationConfirmation(officerName, registrationNumber, companyName string) (subject, body string) {
	subject = "Registration Received - " + registrationNumber
	body = fmt.Sprintf(
		"Dear %s,\n\nYour registration application for %s has been received.\nRegistration Number: %s\n\nUse this number to log in and track your application.\n",
		officerName, companyName, registrationNumber)
	return subject, body
}

func OTPEmail(officerName, code, registrationNumber string) (subject, body string) {
	subject = "Portal Login Code"
	body = fmt.Sprintf(
		"Dear %s,\n\nYour one-time login code for %s is: %s\nIt is valid for 10 minutes.\n",
		officerName, registrationNumber, code)
	return subject, body
}

func OTPSMS(code string) string {
	return fmt.Sprintf("Portal OTP: %s. Valid for 10 minutes.", code)
}

func StatusUpdateEmail(officerName, companyName, newStatus, remarks string) (subject, body string) {
	subject = "Application Status Updated to " + newStatus
	body = fmt.Sprintf(
		"Dear %s,\n\nYour application for %s has been updated.\nNew Status: %s\n",
		officerName, companyName, newStatus)
	if remarks != "" {
		body += "Remarks: " + remarks + "\n"
	}
	body += "\nPlease log in to the portal to view details.\n"
	return subject, body
}

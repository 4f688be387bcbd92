package email

const (
	subjectQuoteFmt      = "Your wrap estimate for the %s %s %s"
	subjectEscalationFmt = "Chat escalation: %s"
	subjectFollowUp      = "Chat lead needs a manual follow-up"
)

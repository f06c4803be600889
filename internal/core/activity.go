package core

import "time"

type ActivityKind string

const (
	ActivityLogin            ActivityKind = "login"
	ActivityLogout           ActivityKind = "logout"
	ActivityAccountOpened    ActivityKind = "account_opened"
	ActivityKYCSubmitted     ActivityKind = "kyc_submitted"
	ActivityDocumentReupload ActivityKind = "document_reuploaded"
	ActivityStatementExport  ActivityKind = "statement_exported"
)

func (k ActivityKind) Label() string { return humanize(string(k)) }

// Activity is a dashboard action recorded for the "recent activity" panel.
type Activity struct {
	ID         int64
	UserEmail  string
	Kind       ActivityKind
	Detail     string
	OccurredAt time.Time
}

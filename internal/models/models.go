// Package models defines the marketplace records the settlement service
// reads and mutates. Attribute names mirror the DynamoDB tables owned by
// the request handlers; this service never creates these records.
package models

type ApplicationStatus string

const (
	ApplicationPending      ApplicationStatus = "pending"
	ApplicationNegotiating  ApplicationStatus = "negotiating"
	ApplicationScheduled    ApplicationStatus = "scheduled"
	ApplicationCompleted    ApplicationStatus = "completed"
	ApplicationDeclined     ApplicationStatus = "declined"
	ApplicationJobCancelled ApplicationStatus = "job_cancelled"
)

type JobType string

const (
	JobTemporary          JobType = "temporary"
	JobMultiDay           JobType = "multi_day"
	JobMultiDayConsulting JobType = "multi_day_consulting"
	JobPermanent          JobType = "permanent"
)

type JobStatus string

const (
	JobActive   JobStatus = "active"
	JobInactive JobStatus = "inactive"
)

type ReferralStatus string

const (
	ReferralSignedUp ReferralStatus = "signed_up"
	ReferralBonusDue ReferralStatus = "bonus_due"
)

// ShiftApplication is one professional's claim on one job, keyed by
// (jobId, professionalUserSub).
type ShiftApplication struct {
	JobID               string            `dynamodbav:"jobId"`
	ProfessionalUserSub string            `dynamodbav:"professionalUserSub"`
	ClinicID            string            `dynamodbav:"clinicId"`
	Status              ApplicationStatus `dynamodbav:"applicationStatus"`
	CreatedAt           string            `dynamodbav:"createdAt"`
	UpdatedAt           string            `dynamodbav:"updatedAt"`
}

// JobPosting is a unit of work offered by a clinic, keyed by
// (clinicUserSub, jobId) and reachable through the clinicId-jobId index.
//
// The date fields are populated inconsistently depending on JobType: temporary
// jobs carry Date, multi-day jobs carry Dates (and sometimes only StartDate),
// and older records carry a full ISO stamp in Date or StartDate.
type JobPosting struct {
	ClinicUserSub string    `dynamodbav:"clinicUserSub"`
	JobID         string    `dynamodbav:"jobId"`
	ClinicID      string    `dynamodbav:"clinicId"`
	JobType       JobType   `dynamodbav:"job_type"`
	Status        JobStatus `dynamodbav:"status"`
	Date          string    `dynamodbav:"date"`
	StartDate     string    `dynamodbav:"start_date"`
	Dates         []string  `dynamodbav:"dates"`
	StartTime     string    `dynamodbav:"start_time"`
	EndTime       string    `dynamodbav:"end_time"`
	UpdatedAt     string    `dynamodbav:"updatedAt"`
}

// ReferralRecord links a referrer to a professional they brought onto the
// platform. The signed_up -> bonus_due transition happens at most once.
type ReferralRecord struct {
	ReferralID      string         `dynamodbav:"referralId"`
	ReferrerUserSub string         `dynamodbav:"referrerUserSub"`
	ReferredUserSub string         `dynamodbav:"referredUserSub"`
	Status          ReferralStatus `dynamodbav:"status"`
	UpdatedAt       string         `dynamodbav:"updatedAt"`
}

// ProfessionalProfile carries the running referral-bonus balance. The
// settlement service only ever adds to BonusBalance.
type ProfessionalProfile struct {
	UserSub      string `dynamodbav:"userSub"`
	BonusBalance int    `dynamodbav:"bonusBalance"`
}

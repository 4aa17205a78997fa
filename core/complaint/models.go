package complaint

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/access"
)

const Collection = "complaints"

type Status string

// Statuses
const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusCompleted  Status = "completed"
)

// next is the only allowed successor of each status.
var next = map[Status]Status{
	StatusOpen:       StatusInProgress,
	StatusInProgress: StatusResolved,
	StatusResolved:   StatusCompleted,
}

// CanTransition reports whether `from` may move to `to`. No status can be skipped.
func CanTransition(from, to Status) bool {
	n, ok := next[from]
	return ok && n == to
}

var Indexes = []core.Index{
	{Fields: []string{"studentId"}},
	{Fields: []string{"studentInfo.hostelBlock", "status"}},
}

type StudentInfo struct {
	Name        string `bson:"name" json:"name"`
	RollNumber  string `bson:"rollNumber,omitempty" json:"rollNumber,omitempty"`
	HostelBlock string `bson:"hostelBlock" json:"hostelBlock"`
	RoomNumber  string `bson:"roomNumber,omitempty" json:"roomNumber,omitempty"`
}

type StatusChange struct {
	From    Status             `bson:"from" json:"from"`
	To      Status             `bson:"to" json:"to"`
	By      primitive.ObjectID `bson:"by" json:"by"`
	Remarks string             `bson:"remarks,omitempty" json:"remarks,omitempty"`
	At      time.Time          `bson:"at" json:"at"`
}

type Complaint struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	StudentID   primitive.ObjectID `bson:"studentId" json:"studentId"`
	StudentInfo StudentInfo        `bson:"studentInfo" json:"studentInfo"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Category    string             `bson:"category" json:"category"`
	Priority    string             `bson:"priority" json:"priority"`
	Status      Status             `bson:"status" json:"status"`
	Remarks     string             `bson:"remarks,omitempty" json:"remarks,omitempty"`
	History     []StatusChange     `bson:"history" json:"history"`
	ResolvedAt  *time.Time         `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
	CompletedAt *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (c Complaint) AccessAttributes() access.Attributes {
	return access.Attributes{
		OwnerIDs:    []string{c.StudentID.Hex()},
		HostelBlock: c.StudentInfo.HostelBlock,
	}
}

// transition moves the complaint to `to`, recording who did it.
func (c *Complaint) transition(to Status, by primitive.ObjectID, remarks string, now time.Time) error {
	if !CanTransition(c.Status, to) {
		return errors.Wrapf(core.ErrInvalidTransition, "cannot move complaint from %s to %s", c.Status, to)
	}
	c.History = append(c.History, StatusChange{From: c.Status, To: to, By: by, Remarks: remarks, At: now})
	c.Status = to
	if remarks != "" {
		c.Remarks = remarks
	}
	switch to {
	case StatusResolved:
		c.ResolvedAt = &now
	case StatusCompleted:
		c.CompletedAt = &now
	}
	c.UpdatedAt = now
	return nil
}

// NewComplaint is what a student files.
type NewComplaint struct {
	Title       string `json:"title" validate:"required,min=5,max=100"`
	Description string `json:"description" validate:"required,min=10,max=1000"`
	Category    string `json:"category" validate:"required,oneof=electrical plumbing cleaning furniture internet mess security other"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	RoomNumber  string `json:"roomNumber" validate:"omitempty,max=20"`
}

func (nc *NewComplaint) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Category = core.CleanString(nc.Category, true /* lower */)
	nc.Priority = core.CleanString(nc.Priority, true /* lower */)
	nc.RoomNumber = core.CleanString(nc.RoomNumber)
	if nc.Priority == "" {
		nc.Priority = "medium"
	}
	return validate.Struct(nc)
}

// StatusUpdate is a warden moving a complaint forward.
type StatusUpdate struct {
	Status  Status `json:"status" validate:"required,oneof=in_progress resolved"`
	Remarks string `json:"remarks" validate:"omitempty,max=500"`
}

func (su *StatusUpdate) Validate(validate *validator.Validate) error {
	su.Remarks = core.CleanString(su.Remarks)
	return validate.Struct(su)
}

// Completion is the owning student closing a resolved complaint.
type Completion struct {
	Feedback string `json:"feedback" validate:"omitempty,max=500"`
}

func (cp *Completion) Validate(validate *validator.Validate) error {
	cp.Feedback = core.CleanString(cp.Feedback)
	return validate.Struct(cp)
}

type QueryFilter struct {
	Search      string `query:"search"`
	Status      string `query:"status"`
	Category    string `query:"category"`
	Priority    string `query:"priority"`
	HostelBlock string `query:"hostelBlock"`
	StudentID   string `query:"studentId"`
}

// Query builds the store query. A restricted scope overrides whatever the client asked for.
func (qf *QueryFilter) Query(scope access.Attributes, restricted bool) (core.Query, error) {
	var fieldErrs []core.FieldError
	q := core.Query{}.Search(qf.Search, "title", "description", "studentInfo.name")
	if status := Status(core.CleanString(qf.Status)); status != "" {
		if _, ok := next[status]; !ok && status != StatusCompleted {
			fieldErrs = append(fieldErrs, core.FieldError{Field: "status", Error: "invalid status"})
		} else {
			q = q.Where(core.Eq("status", status))
		}
	}
	if cat := core.CleanString(qf.Category, true); cat != "" {
		q = q.Where(core.Eq("category", cat))
	}
	if prio := core.CleanString(qf.Priority, true); prio != "" {
		q = q.Where(core.Eq("priority", prio))
	}

	block := core.CleanString(qf.HostelBlock)
	studentID := core.CleanString(qf.StudentID)
	if restricted {
		if scope.HostelBlock != "" {
			block = scope.HostelBlock
		}
		if len(scope.OwnerIDs) > 0 {
			studentID = scope.OwnerIDs[0]
		}
	}
	if block != "" {
		q = q.Where(core.Eq("studentInfo.hostelBlock", block))
	}
	if studentID != "" {
		if id, err := primitive.ObjectIDFromHex(studentID); err != nil {
			fieldErrs = append(fieldErrs, core.FieldError{Field: "studentId", Error: "must be a valid identifier"})
		} else {
			q = q.Where(core.Eq("studentId", id))
		}
	}

	if len(fieldErrs) > 0 {
		return q, core.NewValidationError(ErrInvalidFilter, fieldErrs...)
	}
	return q, nil
}

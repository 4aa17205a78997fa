package complaint

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

var (
	ErrNoHostelBlock = errors.New("you have no hostel block assigned")
	ErrInvalidFilter = errors.New("invalid filter")
)

type Service struct {
	store core.Store[Complaint]
}

func NewService(store core.Store[Complaint]) *Service {
	return &Service{store: store}
}

// Create files a complaint for `student`. The student snapshot is taken from the Profile,
// never from the request.
func (svc *Service) Create(ctx context.Context, nc NewComplaint, student user.Profile) (Complaint, error) {
	if student.HostelBlock == "" {
		return Complaint{}, core.NewValidationError(ErrNoHostelBlock, core.FieldError{Field: "hostelBlock", Error: ErrNoHostelBlock.Error()})
	}
	room := student.RoomNumber
	if nc.RoomNumber != "" {
		room = nc.RoomNumber
	}

	now := core.Now()
	c := Complaint{
		ID:        primitive.NewObjectID(),
		StudentID: student.ID,
		StudentInfo: StudentInfo{
			Name:        student.Name,
			RollNumber:  student.RollNumber,
			HostelBlock: student.HostelBlock,
			RoomNumber:  room,
		},
		Title:       nc.Title,
		Description: nc.Description,
		Category:    nc.Category,
		Priority:    nc.Priority,
		Status:      StatusOpen,
		History:     []StatusChange{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := svc.store.Insert(ctx, c); err != nil {
		return Complaint{}, errors.Wrap(err, "inserting complaint")
	}
	return c, nil
}

func (svc *Service) Get(ctx context.Context, id primitive.ObjectID) (Complaint, error) {
	return svc.store.Get(ctx, id)
}

func (svc *Service) Query(ctx context.Context, q core.Query, opts core.FindOptions) ([]Complaint, int64, error) {
	return svc.store.Find(ctx, q, opts)
}

// UpdateStatus moves a complaint forward on behalf of a warden (in_progress, resolved).
func (svc *Service) UpdateStatus(ctx context.Context, c Complaint, su StatusUpdate, by user.Profile) (Complaint, error) {
	if su.Status != StatusInProgress && su.Status != StatusResolved {
		return Complaint{}, errors.Wrapf(core.ErrInvalidTransition, "status %s cannot be set here", su.Status)
	}
	if err := c.transition(su.Status, by.ID, su.Remarks, core.Now()); err != nil {
		return Complaint{}, err
	}
	if err := svc.store.Replace(ctx, c.ID, c); err != nil {
		return Complaint{}, errors.Wrap(err, "updating complaint")
	}
	return c, nil
}

// Complete is the owning student acknowledging a resolved complaint.
func (svc *Service) Complete(ctx context.Context, c Complaint, cp Completion, by user.Profile) (Complaint, error) {
	if err := c.transition(StatusCompleted, by.ID, cp.Feedback, core.Now()); err != nil {
		return Complaint{}, err
	}
	if err := svc.store.Replace(ctx, c.ID, c); err != nil {
		return Complaint{}, errors.Wrap(err, "updating complaint")
	}
	return c, nil
}

// Delete removes a complaint. Students may only withdraw complaints nobody has picked up yet.
func (svc *Service) Delete(ctx context.Context, c Complaint, by user.Profile) error {
	if by.Role == user.RoleStudent && c.Status != StatusOpen {
		return errors.Wrapf(core.ErrInvalidTransition, "a complaint %s can no longer be withdrawn", c.Status)
	}
	return errors.Wrap(svc.store.Delete(ctx, c.ID), "deleting complaint")
}

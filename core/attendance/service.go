package attendance

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

var (
	// errors
	ErrAlreadyMarked = errors.New("attendance has already been marked for this class")
	ErrInvalidFilter = errors.New("invalid filter")
)

type Service struct {
	store core.Store[Attendance]
}

func NewService(store core.Store[Attendance]) *Service {
	return &Service{store: store}
}

// Build turns validated input into a record, without saving it. The class is taught by
// `creator` unless another faculty is named.
func (svc *Service) Build(na NewAttendance, creator user.Profile) Attendance {
	date, _ := core.ParseDate(na.Date)
	facultyID, facultyName := creator.ID, creator.Name
	if na.FacultyID != "" {
		facultyID, _ = primitive.ObjectIDFromHex(na.FacultyID)
		facultyName = na.FacultyName
	}

	now := core.Now()
	a := Attendance{
		ID: primitive.NewObjectID(),
		ClassInfo: ClassInfo{
			Date:        date,
			Subject:     na.Subject,
			StartTime:   na.StartTime,
			EndTime:     na.EndTime,
			Branch:      na.Branch,
			Section:     na.Section,
			Year:        na.Year,
			Semester:    na.Semester,
			FacultyID:   facultyID,
			FacultyName: facultyName,
		},
		CreatedBy: creator.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	a.setMarks(marksFrom(na.Students))
	return a
}

// Create saves a record built by Build. A second record for the same class session is
// refused up front; the unique index is the final word when two requests race.
func (svc *Service) Create(ctx context.Context, a Attendance) (Attendance, error) {
	exists, err := svc.store.Exists(ctx, a.ClassInfo.key())
	if err != nil {
		return Attendance{}, errors.Wrap(err, "checking duplicate attendance")
	}
	if exists {
		return Attendance{}, errors.Wrap(core.ErrDuplicate, ErrAlreadyMarked.Error())
	}
	if err := svc.store.Insert(ctx, a); err != nil {
		if errors.Cause(err) == core.ErrDuplicate {
			return Attendance{}, errors.Wrap(core.ErrDuplicate, ErrAlreadyMarked.Error())
		}
		return Attendance{}, errors.Wrap(err, "inserting attendance")
	}
	return a, nil
}

func (svc *Service) Get(ctx context.Context, id primitive.ObjectID) (Attendance, error) {
	return svc.store.Get(ctx, id)
}

func (svc *Service) Query(ctx context.Context, q core.Query, opts core.FindOptions) ([]Attendance, int64, error) {
	return svc.store.Find(ctx, q, opts)
}

// ReplaceMarks swaps the whole marks list and recomputes the summary.
func (svc *Service) ReplaceMarks(ctx context.Context, a Attendance, um UpdateMarks) (Attendance, error) {
	a.setMarks(marksFrom(um.Students))
	a.UpdatedAt = core.Now()
	if err := svc.store.Replace(ctx, a.ID, a); err != nil {
		return Attendance{}, errors.Wrap(err, "updating attendance")
	}
	return a, nil
}

func (svc *Service) Delete(ctx context.Context, a Attendance) error {
	return errors.Wrap(svc.store.Delete(ctx, a.ID), "deleting attendance")
}

// StudentSummary aggregates the marks of one student per subject, within `q`.
func (svc *Service) StudentSummary(ctx context.Context, studentID primitive.ObjectID, q core.Query) (StudentSummary, error) {
	q = q.Where(core.Eq("studentAttendance.studentId", studentID))
	records, _, err := svc.store.Find(ctx, q, core.FindOptions{
		Orderings: []core.DBOrdering{{Field: "classInfo.date", Ascending: true}},
	})
	if err != nil {
		return StudentSummary{}, errors.Wrap(err, "loading attendance")
	}

	bySubject := make(map[string]*SubjectSummary)
	overall := SubjectSummary{Subject: "overall"}
	for _, rec := range records {
		for _, m := range rec.StudentAttendance {
			if m.StudentID != studentID {
				continue
			}
			sub, ok := bySubject[rec.ClassInfo.Subject]
			if !ok {
				sub = &SubjectSummary{Subject: rec.ClassInfo.Subject}
				bySubject[rec.ClassInfo.Subject] = sub
			}
			sub.count(m.Status)
			overall.count(m.Status)
		}
	}

	summary := StudentSummary{StudentID: studentID, Subjects: make([]SubjectSummary, 0, len(bySubject))}
	for _, sub := range bySubject {
		sub.computePercentage()
		summary.Subjects = append(summary.Subjects, *sub)
	}
	sort.Slice(summary.Subjects, func(i, j int) bool { return summary.Subjects[i].Subject < summary.Subjects[j].Subject })
	overall.computePercentage()
	summary.Overall = overall
	return summary, nil
}

func (s *SubjectSummary) count(status Status) {
	s.Total++
	switch status {
	case StatusPresent:
		s.Present++
	case StatusAbsent:
		s.Absent++
	case StatusLate:
		s.Late++
	case StatusExcused:
		s.Excused++
	}
}

func (s *SubjectSummary) computePercentage() {
	if s.Total > 0 {
		s.Percentage = math.Round(float64(s.Present+s.Late)/float64(s.Total)*10000) / 100
	}
}

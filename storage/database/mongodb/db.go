package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/attendance"
	"github.com/trezcool/campus/core/catalog"
	"github.com/trezcool/campus/core/complaint"
	"github.com/trezcool/campus/core/course"
	"github.com/trezcool/campus/core/user"
	"github.com/trezcool/campus/storage/database"
)

// Open connects to MongoDB and waits for it to answer.
func Open(ctx context.Context, conf core.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().ApplyURI(conf.URI)
	if conf.Timeout > 0 {
		opts.SetTimeout(conf.Timeout)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err := ping(ctx, client); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}
	return client, client.Database(conf.Database), nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, client *mongo.Client) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = client.Ping(ctx, nil); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

// EnsureIndexes creates the declared indexes of every collection. Existing indexes are left as is.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, c := range database.Collections {
		if len(c.Indexes) == 0 {
			continue
		}
		models := make([]mongo.IndexModel, 0, len(c.Indexes))
		for _, idx := range c.Indexes {
			keys := bson.D{}
			for _, f := range idx.Fields {
				keys = append(keys, bson.E{Key: f, Value: 1})
			}
			models = append(models, mongo.IndexModel{
				Keys:    keys,
				Options: options.Index().SetName(idx.Name()).SetUnique(idx.Unique),
			})
		}
		if _, err := db.Collection(c.Name).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating indexes of %s", c.Name)
		}
	}
	return nil
}

func NewRepositories(db *mongo.Database) database.Repositories {
	return database.Repositories{
		Accounts:           NewCollection[user.Account](db, user.AccountCollection),
		Profiles:           NewCollection[user.Profile](db, user.ProfileCollection),
		Complaints:         NewCollection[complaint.Complaint](db, complaint.Collection),
		Attendance:         NewCollection[attendance.Attendance](db, attendance.Collection),
		Courses:            NewCollection[course.Course](db, course.Collection),
		Departments:        NewCollection[catalog.Department](db, catalog.DepartmentCollection),
		FacultyDepartments: NewCollection[catalog.FacultyDepartment](db, catalog.FacultyDepartmentCollection),
		StudentBatches:     NewCollection[catalog.StudentBatch](db, catalog.StudentBatchCollection),
		BatchSections:      NewCollection[catalog.BatchSection](db, catalog.BatchSectionCollection),
		SubjectAssignments: NewCollection[catalog.SubjectAssignment](db, catalog.SubjectAssignmentCollection),
		Holidays:           NewCollection[catalog.Holiday](db, catalog.HolidayCollection),
		MessMenus:          NewCollection[catalog.MessMenu](db, catalog.MessMenuCollection),
	}
}

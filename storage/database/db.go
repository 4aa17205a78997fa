// Package database lists the collections of the API and the stores backing them.
package database

import (
	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/attendance"
	"github.com/trezcool/campus/core/catalog"
	"github.com/trezcool/campus/core/complaint"
	"github.com/trezcool/campus/core/course"
	"github.com/trezcool/campus/core/user"
)

// Repositories holds one store per collection.
type Repositories struct {
	Accounts           core.Store[user.Account]
	Profiles           core.Store[user.Profile]
	Complaints         core.Store[complaint.Complaint]
	Attendance         core.Store[attendance.Attendance]
	Courses            core.Store[course.Course]
	Departments        core.Store[catalog.Department]
	FacultyDepartments core.Store[catalog.FacultyDepartment]
	StudentBatches     core.Store[catalog.StudentBatch]
	BatchSections      core.Store[catalog.BatchSection]
	SubjectAssignments core.Store[catalog.SubjectAssignment]
	Holidays           core.Store[catalog.Holiday]
	MessMenus          core.Store[catalog.MessMenu]
}

// Collection is a collection name with the indexes it must carry.
type Collection struct {
	Name    string
	Indexes []core.Index
}

var Collections = []Collection{
	{user.AccountCollection, user.AccountIndexes},
	{user.ProfileCollection, user.ProfileIndexes},
	{complaint.Collection, complaint.Indexes},
	{attendance.Collection, attendance.Indexes},
	{course.Collection, course.Indexes},
	{catalog.DepartmentCollection, catalog.DepartmentIndexes},
	{catalog.FacultyDepartmentCollection, catalog.FacultyDepartmentIndexes},
	{catalog.StudentBatchCollection, catalog.StudentBatchIndexes},
	{catalog.BatchSectionCollection, catalog.BatchSectionIndexes},
	{catalog.SubjectAssignmentCollection, catalog.SubjectAssignmentIndexes},
	{catalog.HolidayCollection, catalog.HolidayIndexes},
	{catalog.MessMenuCollection, catalog.MessMenuIndexes},
}

// IndexesOf returns the indexes declared for collection `name`.
func IndexesOf(name string) []core.Index {
	for _, c := range Collections {
		if c.Name == name {
			return c.Indexes
		}
	}
	return nil
}

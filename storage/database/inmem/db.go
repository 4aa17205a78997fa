package inmem

import (
	"github.com/trezcool/campus/core/attendance"
	"github.com/trezcool/campus/core/catalog"
	"github.com/trezcool/campus/core/complaint"
	"github.com/trezcool/campus/core/course"
	"github.com/trezcool/campus/core/user"
	"github.com/trezcool/campus/storage/database"
)

func newTable[T any](name string) *Table[T] {
	return NewTable[T](name, database.IndexesOf(name))
}

// NewRepositories returns empty in-memory stores carrying the same unique indexes as MongoDB.
func NewRepositories() database.Repositories {
	return database.Repositories{
		Accounts:           newTable[user.Account](user.AccountCollection),
		Profiles:           newTable[user.Profile](user.ProfileCollection),
		Complaints:         newTable[complaint.Complaint](complaint.Collection),
		Attendance:         newTable[attendance.Attendance](attendance.Collection),
		Courses:            newTable[course.Course](course.Collection),
		Departments:        newTable[catalog.Department](catalog.DepartmentCollection),
		FacultyDepartments: newTable[catalog.FacultyDepartment](catalog.FacultyDepartmentCollection),
		StudentBatches:     newTable[catalog.StudentBatch](catalog.StudentBatchCollection),
		BatchSections:      newTable[catalog.BatchSection](catalog.BatchSectionCollection),
		SubjectAssignments: newTable[catalog.SubjectAssignment](catalog.SubjectAssignmentCollection),
		Holidays:           newTable[catalog.Holiday](catalog.HolidayCollection),
		MessMenus:          newTable[catalog.MessMenu](catalog.MessMenuCollection),
	}
}

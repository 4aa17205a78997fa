package access

import (
	"github.com/trezcool/campus/core/user"
)

// CRUD groups the endpoints of a plain resource.
type CRUD struct {
	List, Read, Create, Update, Delete Endpoint
}

func crud(resource string) CRUD {
	return CRUD{
		List:   Endpoint(resource + ".list"),
		Read:   Endpoint(resource + ".read"),
		Create: Endpoint(resource + ".create"),
		Update: Endpoint(resource + ".update"),
		Delete: Endpoint(resource + ".delete"),
	}
}

// Endpoints
const (
	AuthMe             Endpoint = "auth.me"
	AuthTokenRefresh   Endpoint = "auth.token_refresh"
	AuthChangePassword Endpoint = "auth.change_password"

	ProfileMeRead   Endpoint = "profiles.me.read"
	ProfileMeUpdate Endpoint = "profiles.me.update"
	ProfileList     Endpoint = "profiles.list"
	ProfileRead     Endpoint = "profiles.read"

	UserRoles Endpoint = "users.roles"

	AttendanceStudentSummary Endpoint = "attendance.student_summary"

	ComplaintUpdateStatus Endpoint = "complaints.update_status"
	ComplaintComplete     Endpoint = "complaints.complete"
)

var (
	Users               = crud("users")
	Attendance          = crud("attendance")
	Complaints          = crud("complaints")
	Courses             = crud("courses")
	Departments         = crud("departments")
	FacultyDepartments  = crud("faculty_departments")
	StudentBatches      = crud("student_batches")
	StudentBatchSection = crud("student_batch_sections")
	SubjectAssignments  = crud("subject_assignments")
	Holidays            = crud("holidays")
	MessMenu            = crud("mess_menu")
)

func roles(rs ...user.Role) []user.Role { return rs }

var (
	anyone    = user.AllRoles
	staff     = roles(user.RoleSuperAdmin, user.RoleAcademicStaff, user.RoleFaculty, user.RoleHOD, user.RoleDirector, user.RoleHostelWarden)
	academics = roles(user.RoleSuperAdmin, user.RoleAcademicStaff)
)

// DefaultPolicy is the authorization table of the API.
var DefaultPolicy = func() Policy {
	p := Policy{
		AuthMe:             {Roles: anyone},
		AuthTokenRefresh:   {Roles: anyone},
		AuthChangePassword: {Roles: anyone, Write: true},

		ProfileMeRead:   {Roles: anyone},
		ProfileMeUpdate: {Roles: anyone, Write: true},
		ProfileList:     {Roles: staff},
		ProfileRead:     {Roles: staff},

		UserRoles: {Roles: roles(user.RoleSuperAdmin)},

		AttendanceStudentSummary: {
			Roles:  roles(user.RoleSuperAdmin, user.RoleAcademicStaff, user.RoleFaculty, user.RoleHOD, user.RoleDirector, user.RoleStudent),
			Scopes: map[user.Role]Scope{user.RoleStudent: OwnerScope{}},
		},

		ComplaintUpdateStatus: {
			Roles:  roles(user.RoleHostelWarden),
			Write:  true,
			Scopes: map[user.Role]Scope{user.RoleHostelWarden: HostelBlockScope{}},
		},
		ComplaintComplete: {
			Roles:  roles(user.RoleStudent),
			Write:  true,
			Scopes: map[user.Role]Scope{user.RoleStudent: OwnerScope{}},
		},
	}

	p.addCRUD(Users, roles(user.RoleSuperAdmin), roles(user.RoleSuperAdmin))

	attendanceReaders := Rule{
		Roles: roles(user.RoleSuperAdmin, user.RoleAcademicStaff, user.RoleFaculty, user.RoleHOD, user.RoleDirector, user.RoleStudent),
		Scopes: map[user.Role]Scope{
			user.RoleStudent: OwnerScope{},
			user.RoleFaculty: FacultyScope{},
		},
	}
	attendanceWriters := Rule{
		Roles:  roles(user.RoleSuperAdmin, user.RoleAcademicStaff, user.RoleFaculty),
		Write:  true,
		Scopes: map[user.Role]Scope{user.RoleFaculty: FacultyScope{}},
	}
	p[Attendance.List] = attendanceReaders
	p[Attendance.Read] = attendanceReaders
	p[Attendance.Create] = attendanceWriters
	p[Attendance.Update] = attendanceWriters
	p[Attendance.Delete] = Rule{Roles: academics, Write: true}

	complaintReaders := Rule{
		Roles: roles(user.RoleSuperAdmin, user.RoleDirector, user.RoleHostelWarden, user.RoleStudent),
		Scopes: map[user.Role]Scope{
			user.RoleStudent:      OwnerScope{},
			user.RoleHostelWarden: HostelBlockScope{},
		},
	}
	p[Complaints.List] = complaintReaders
	p[Complaints.Read] = complaintReaders
	p[Complaints.Create] = Rule{Roles: roles(user.RoleStudent), Write: true}
	p[Complaints.Delete] = Rule{
		Roles:  roles(user.RoleSuperAdmin, user.RoleStudent),
		Write:  true,
		Scopes: map[user.Role]Scope{user.RoleStudent: OwnerScope{}},
	}

	courseWriters := Rule{
		Roles:  roles(user.RoleSuperAdmin, user.RoleAcademicStaff, user.RoleHOD, user.RoleFaculty),
		Write:  true,
		Scopes: map[user.Role]Scope{user.RoleFaculty: CreatorScope{}},
	}
	p[Courses.List] = Rule{Roles: anyone}
	p[Courses.Read] = Rule{Roles: anyone}
	p[Courses.Create] = Rule{Roles: courseWriters.Roles, Write: true}
	p[Courses.Update] = courseWriters
	p[Courses.Delete] = courseWriters

	p.addCRUD(Departments, anyone, academics)
	p.addCRUD(FacultyDepartments,
		roles(user.RoleSuperAdmin, user.RoleAcademicStaff, user.RoleHOD, user.RoleDirector, user.RoleFaculty),
		roles(user.RoleSuperAdmin, user.RoleAcademicStaff, user.RoleHOD))
	p.addCRUD(StudentBatches, anyone, academics)
	p.addCRUD(StudentBatchSection, anyone, academics)
	p.addCRUD(SubjectAssignments,
		roles(user.RoleSuperAdmin, user.RoleAcademicStaff, user.RoleHOD, user.RoleDirector, user.RoleFaculty, user.RoleStudent),
		roles(user.RoleSuperAdmin, user.RoleAcademicStaff, user.RoleHOD))
	p.addCRUD(Holidays, anyone, academics)
	p.addCRUD(MessMenu, anyone, roles(user.RoleSuperAdmin, user.RoleMessSupervisor))
	return p
}()

func (p Policy) addCRUD(eps CRUD, readers, writers []user.Role) {
	p[eps.List] = Rule{Roles: readers}
	p[eps.Read] = Rule{Roles: readers}
	p[eps.Create] = Rule{Roles: writers, Write: true}
	p[eps.Update] = Rule{Roles: writers, Write: true}
	p[eps.Delete] = Rule{Roles: writers, Write: true}
}

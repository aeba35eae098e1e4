package core

import "sort"

// Branch codes offered by the university.
const (
	BranchBTCS = "BTCS" // B.Tech Computer Science
	BranchBTEC = "BTEC" // B.Tech Electronics & Communication
	BranchBTME = "BTME" // B.Tech Mechanical
	BranchBTCE = "BTCE" // B.Tech Civil
	BranchBTEE = "BTEE" // B.Tech Electrical
	BranchMBA  = "MBA"
	BranchMCA  = "MCA"
)

// Semesters run 1 through 8.
const (
	MinSemester = 1
	MaxSemester = 8
)

var Branches = []string{
	BranchBTCE,
	BranchBTCS,
	BranchBTEC,
	BranchBTEE,
	BranchBTME,
	BranchMBA,
	BranchMCA,
}

// ValidBranch reports whether code is a recognized branch code.
func ValidBranch(code string) bool {
	idx := sort.SearchStrings(Branches, code)
	return idx < len(Branches) && Branches[idx] == code
}

// ValidSemester reports whether sem falls within the 1-8 range.
func ValidSemester(sem int) bool {
	return sem >= MinSemester && sem <= MaxSemester
}

package seedmodels

// SeedCourse is a course owned by a seeded user.
type SeedCourse struct {
	Name string `json:"name"`
}

// SeedUser defines a development account in the JSON seed file.
type SeedUser struct {
	Email   string       `json:"email"`
	Name    string       `json:"name"`
	Credits int          `json:"credits"`
	Courses []SeedCourse `json:"courses"`
}

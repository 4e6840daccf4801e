package directory

// Fields holds the JMESPath expressions that pick each record field out of a raw roster entry.
type Fields struct {
	Email       string
	DisplayName string
	Department  string
	Title       string
	Manager     string
	Site        string
	Team        string
}

func DefaultFields() Fields {
	return Fields{
		Email:       "email",
		DisplayName: "displayName || fullName",
		Department:  "work.department",
		Title:       "work.title",
		Manager:     "work.reportsTo.displayName",
		Site:        "work.site",
		Team:        "work.customColumns.team",
	}
}

// With returns a copy of f with the non-empty overrides applied. Keys are the lower camel case
// field names used in the "hibobFields" config section.
func (f Fields) With(overrides map[string]string) Fields {
	for k, v := range overrides {
		if v == "" {
			continue
		}
		switch k {
		case "email":
			f.Email = v
		case "displayName":
			f.DisplayName = v
		case "department":
			f.Department = v
		case "title":
			f.Title = v
		case "manager":
			f.Manager = v
		case "site":
			f.Site = v
		case "team":
			f.Team = v
		}
	}
	return f
}

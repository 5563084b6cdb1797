package core

// DBOrdering is a single ordering criterion parsed from an `ordering` query
// parameter. Field names are the JSON names of the ordered resource.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

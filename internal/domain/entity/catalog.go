package entity

// Project obra o sede dueña del stock.
type Project struct {
	ID       int64
	Code     string
	Name     string
	IsActive bool
}

// Location sub-ubicación física. ProjectID nil + IsSegregation = zona de segregación compartida.
type Location struct {
	ID            int64
	Code          string
	Name          string
	ProjectID     *int64
	IsSegregation bool
	IsActive      bool
}

// BelongsTo indica si la ubicación puede usarse en movimientos del proyecto.
func (l *Location) BelongsTo(projectID int64) bool {
	if l.ProjectID == nil {
		return l.IsSegregation
	}
	return *l.ProjectID == projectID
}

// Item tipo de EPP. RequiresSize se fija en el catálogo.
type Item struct {
	ID           int64
	Name         string
	Category     string
	Unit         string
	RequiresSize bool
	MinStock     int64
	IsActive     bool
}

// Employee trabajador que recibe EPP.
type Employee struct {
	ID       int64
	DNI      string
	FullName string
	IsActive bool
}

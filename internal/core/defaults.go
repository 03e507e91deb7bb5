package core

// DefaultCategories returns the categories seeded for a new owner.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Alimentação", Color: "bg-orange-500"},
		{Name: "Transporte", Color: "bg-blue-500"},
		{Name: "Saúde", Color: "bg-green-500"},
		{Name: "Lazer", Color: "bg-purple-500"},
		{Name: "Educação", Color: "bg-yellow-500"},
	}
}

// DefaultResponsibles returns the responsibles seeded for a new owner.
func DefaultResponsibles() []Responsible {
	return []Responsible{
		{Name: "Eu"},
	}
}

package repository

import (
	"gorm.io/datatypes"

	"github.com/Joseph-Bethune/Gabble-Live/internal/models"
)

func historyColumn(names []string) datatypes.JSONSlice[string] {
	if names == nil {
		return datatypes.JSONSlice[string]{}
	}
	return datatypes.JSONSlice[string](names)
}

func rolesColumn(roles []models.Role) datatypes.JSONSlice[models.Role] {
	if roles == nil {
		return datatypes.JSONSlice[models.Role]{}
	}
	return datatypes.JSONSlice[models.Role](roles)
}

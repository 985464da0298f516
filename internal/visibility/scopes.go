package visibility

import "gorm.io/gorm"

// ExcludeOwners filters out rows whose column is one of ids
func ExcludeOwners(column string, ids []string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(ids) == 0 {
			return db
		}
		return db.Where(column+" NOT IN ?", ids)
	}
}

// ExcludeIDs filters out rows whose numeric id column is one of ids
func ExcludeIDs(column string, ids []uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(ids) == 0 {
			return db
		}
		return db.Where(column+" NOT IN ?", ids)
	}
}

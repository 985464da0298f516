package models

// All lists every model in migration order
func All() []any {
	return []any{
		&User{},
		&Profile{},
		&PasswordReset{},
		&Follow{},
		&UserBlock{},
		&Post{},
		&Video{},
		&Comment{},
		&Like{},
		&LikeCounter{},
		&CommentCounter{},
		&HiddenContent{},
	}
}

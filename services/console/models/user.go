package models

const (
	RoleAdmin   = "admin"
	RoleCashier = "Cashier"
)

// User is the console account document; PasswordHash is a bcrypt hash.
type User struct {
	ID           string `json:"id,omitempty" bson:"_id,omitempty" dynamodbav:"id,omitempty"`
	Email        string `json:"email" bson:"email" dynamodbav:"email"`
	Name         string `json:"name" bson:"name" dynamodbav:"name"`
	Role         string `json:"role" bson:"role" dynamodbav:"role"`
	PasswordHash string `json:"passwordHash,omitempty" bson:"passwordHash,omitempty" dynamodbav:"passwordHash,omitempty"`
	PendingEmail string `json:"pendingEmail,omitempty" bson:"pendingEmail,omitempty" dynamodbav:"pendingEmail,omitempty"`
}

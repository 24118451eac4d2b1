package schema

// UserOTPTable represents the 'users.otp' table
type UserOTPTable struct {
	Table     string
	ID        string
	UserID    string
	Code      string
	Type      string
	ExpiresAt string
	Used      string
	CreatedAt string
}

// UserOTP is the schema definition for users.otp
var UserOTP = UserOTPTable{
	Table:     "users.otp",
	ID:        "id",
	UserID:    "userid",
	Code:      "code",
	Type:      "type",
	ExpiresAt: "expiresat",
	Used:      "used",
	CreatedAt: "createdat",
}

// Columns returns all standard column names
func (t UserOTPTable) Columns() []string {
	return []string{t.ID, t.UserID, t.Code, t.Type, t.ExpiresAt, t.Used, t.CreatedAt}
}

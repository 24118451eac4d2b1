package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table               string
	ID                  string
	Username            string
	Email               string
	FirstName           string
	LastName            string
	Password            string
	Status              string
	Role                string
	IsActive            string
	IsVerified          string
	FailedAttempts      string
	LockedUntil         string
	PasswordChangedAt   string
	ForcePasswordChange string
	CreatedAt           string
	UpdatedAt           string

	// Constraint names used to classify unique violations.
	UsernameKey      string
	UsernameLowerKey string
	EmailKey         string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:               "users.account",
	ID:                  "id",
	Username:            "username",
	Email:               "email",
	FirstName:           "firstname",
	LastName:            "lastname",
	Password:            "passwordhash",
	Status:              "status",
	Role:                "role",
	IsActive:            "isactive",
	IsVerified:          "isverified",
	FailedAttempts:      "failedattempts",
	LockedUntil:         "lockeduntil",
	PasswordChangedAt:   "passwordchangedat",
	ForcePasswordChange: "forcepasswordchange",
	CreatedAt:           "createdat",
	UpdatedAt:           "updatedat",

	UsernameKey:      "account_username_key",
	UsernameLowerKey: "account_username_lower_key",
	EmailKey:         "account_email_key",
}

// Columns returns all standard column names
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Username, t.Email, t.FirstName, t.LastName, t.Password,
		t.Status, t.Role, t.IsActive, t.IsVerified, t.FailedAttempts,
		t.LockedUntil, t.PasswordChangedAt, t.ForcePasswordChange,
		t.CreatedAt, t.UpdatedAt,
	}
}

package schema

// SystemAuditLogTable represents the 'system.auditlog' table
type SystemAuditLogTable struct {
	Table     string
	ID        string
	UserID    string
	Event     string
	Details   string
	IPAddress string
	CreatedAt string
}

// SystemAuditLog is the schema definition for system.auditlog
var SystemAuditLog = SystemAuditLogTable{
	Table:     "system.auditlog",
	ID:        "id",
	UserID:    "userid",
	Event:     "event",
	Details:   "details",
	IPAddress: "ipaddress",
	CreatedAt: "createdat",
}

// Columns returns all standard column names
func (t SystemAuditLogTable) Columns() []string {
	return []string{t.ID, t.UserID, t.Event, t.Details, t.IPAddress, t.CreatedAt}
}

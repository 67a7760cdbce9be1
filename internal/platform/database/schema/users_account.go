package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table                 string
	ID                    string
	Email                 string
	Name                  string
	Role                  string
	SnsProvider           string
	SnsID                 string
	RefreshTokenHash      string
	RefreshTokenExpiresAt string
	IsSentinel            string
	CreatedAt             string
	UpdatedAt             string
	DeletedAt             string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:                 "users.account",
	ID:                    "id",
	Email:                 "email",
	Name:                  "name",
	Role:                  "role",
	SnsProvider:           "snsprovider",
	SnsID:                 "snsid",
	RefreshTokenHash:      "refreshtokenhash",
	RefreshTokenExpiresAt: "refreshtokenexpiresat",
	IsSentinel:            "issentinel",
	CreatedAt:             "createdat",
	UpdatedAt:             "updatedat",
	DeletedAt:             "deletedat",
}

// Columns returns all standard column names
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Email, t.Name, t.Role, t.SnsProvider, t.SnsID,
		t.RefreshTokenHash, t.RefreshTokenExpiresAt, t.CreatedAt,
		t.UpdatedAt, t.DeletedAt,
	}
}

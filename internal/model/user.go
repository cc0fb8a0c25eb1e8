package model

import "time"

// Roles accepted in the JWT "role" claim.
const (
    RoleUser  = "USER"
    RoleAdmin = "ADMIN"
)

// User represents an application user record as stored in the `users`
// table. Each user owns exactly one PointsAccount, opened at sign-up.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, lower-cased email address.
//  Nickname     – unique display name.
//  PasswordHash – bcrypt hashed password.
//  Role         – USER or ADMIN.
//  CreatedAt    – timestamp of creation.
type User struct {
    ID           uint64    `db:"id"`
    Email        string    `db:"email"`
    Nickname     string    `db:"nickname"`
    PasswordHash string    `db:"password_hash"`
    Role         string    `db:"role"`
    CreatedAt    time.Time `db:"created_at"`
}

// RefreshToken models an entry in the `refresh_tokens` table. The plain
// token is never stored; only its SHA‑256 hash.
type RefreshToken struct {
    ID        uint64     `db:"id"`
    UserID    uint64     `db:"user_id"`
    TokenHash string     `db:"token_hash"`
    ExpiresAt time.Time  `db:"expires_at"`
    RevokedAt *time.Time `db:"revoked_at"`
    CreatedAt time.Time  `db:"created_at"`
}

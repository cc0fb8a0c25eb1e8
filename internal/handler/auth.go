package handler

import (
    "context"  // provides context with cancellation for store calls
    "errors"   // errors.Is on repository sentinels
    "net/http" // HTTP status codes and primitives
    "net/mail" // email syntax check
    "strings"  // string manipulation utilities
    "time"     // timeouts for store calls

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/iliyamo/show-reservation/internal/config"     // app configuration
    "github.com/iliyamo/show-reservation/internal/database"   // transaction scope for sign-up
    "github.com/iliyamo/show-reservation/internal/errs"       // error taxonomy
    "github.com/iliyamo/show-reservation/internal/ledger"     // points account opened at sign-up
    "github.com/iliyamo/show-reservation/internal/model"      // user and role types
    "github.com/iliyamo/show-reservation/internal/repository" // store contracts
    "github.com/iliyamo/show-reservation/internal/utils"      // hashing and token issuing
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Tx     database.Transactor
	Users  repository.UserStore
	Tokens repository.TokenStore
	Ledger *ledger.Ledger
}

func NewAuthHandler(cfg config.Config, tx database.Transactor, u repository.UserStore, t repository.TokenStore, l *ledger.Ledger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Tx: tx, Users: u, Tokens: t, Ledger: l}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Password string `json:"password"`
	AdminKey string `json:"admin_key"` // optional; must equal ADMIN_SIGNUP_KEY
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID       uint64 `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Points  *int64    `json:"points,omitempty"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, Email: u.Email, Nickname: u.Nickname, Role: u.Role}
}

// issue creates an access/refresh pair for u and stores the refresh hash.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    toUserPart(u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// Register creates the user and its points account in one transaction and
// returns tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Nickname = strings.TrimSpace(req.Nickname)
	if req.Email == "" || req.Nickname == "" || req.Password == "" {
		return badRequest(c, "email, nickname and password are required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return badRequest(c, "invalid email")
	}
	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if errors.Is(err, utils.ErrPasswordTooShort) {
		return badRequest(c, "password too short")
	}
	if err != nil {
		return writeError(c, err)
	}
	role := model.RoleUser
	if h.Cfg.AdminSignupKey != "" && req.AdminKey == h.Cfg.AdminSignupKey {
		role = model.RoleAdmin
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u := model.User{Email: req.Email, Nickname: req.Nickname, PasswordHash: hash, Role: role}
	err = h.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := h.Users.Create(ctx, &u); err != nil {
			return err
		}
		return h.Ledger.Open(ctx, u.ID, h.Cfg.SignupPoints)
	})
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return writeError(c, errEmailTaken)
	case errors.Is(err, repository.ErrNicknameExists):
		return writeError(c, errNicknameTaken)
	case err != nil:
		return writeError(c, err)
	}

	resp, err := h.issue(ctx, u)
	if err != nil {
		return writeError(c, err)
	}
	points := h.Cfg.SignupPoints
	resp.Points = &points
	return c.JSON(http.StatusCreated, resp)
}

// Login: verify and return new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email/password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return writeError(c, errInvalidCredentials)
	}
	if err != nil {
		return writeError(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return writeError(c, errInvalidCredentials)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh: validate by hash, revoke old, issue new.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var u model.User
	err := h.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		userID, err := h.Tokens.ValidateRefresh(ctx, hash)
		if err != nil {
			return errInvalidRefreshToken
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return err
		}
		u, err = h.Users.GetByID(ctx, userID)
		return err
	})
	if err != nil {
		return writeError(c, err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes one session when a refresh_token is posted, or every
// session of the caller when only a bearer access token is presented.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    _ = c.Bind(&req) // an empty or invalid body just means "no refresh token"
    refreshToken := strings.TrimSpace(req.RefreshToken)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if refreshToken != "" {
        hash := utils.HashRefreshRaw(refreshToken)
        if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
            return writeError(c, errInvalidRefreshToken)
        }
        if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
            return writeError(c, err)
        }
        return c.NoContent(http.StatusNoContent)
    }

    // No body token: fall back to the bearer, parsed here because this route
    // is not behind JWTAuth.
    auth := c.Request().Header.Get(echo.HeaderAuthorization)
    if !strings.HasPrefix(auth, "Bearer ") {
        return badRequest(c, "provide Authorization header or refresh_token")
    }
    claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
    if err != nil {
        return writeError(c, errUnauthenticated)
    }
    uid, _ := claims.UserID()
    if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
        return writeError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's profile and balance.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx := c.Request().Context()
	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return writeError(c, errs.New(errs.KindNotFound, "user_not_found", "user not found"))
	}
	if err != nil {
		return writeError(c, err)
	}
	balance, err := h.Ledger.Balance(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u), "points": balance})
}

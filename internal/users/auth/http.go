// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/yomira-auth/internal/platform/middleware"
	requestutil "github.com/taibuivan/yomira-auth/internal/platform/request"
	"github.com/taibuivan/yomira-auth/internal/platform/respond"
	"github.com/taibuivan/yomira-auth/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the authentication HTTP endpoints.
//
// # Scope
//
// Auth endpoints answer with flat JSON bodies ({"message": ...} or a token
// pair) rather than the {data} envelope used by resource endpoints.
type Handler struct {
	authService  *Service
	loginLimiter middleware.AttemptLimiter
}

// NewHandler constructs a new [Handler]. A nil loginLimiter disables the
// per-IP login budget.
func NewHandler(service *Service, loginLimiter middleware.AttemptLimiter) *Handler {
	return &Handler{authService: service, loginLimiter: loginLimiter}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /signup          : Creates a pending account and emails a code.
//   - POST /verify-otp      : Verifies the account email.
//   - POST /login           : Authenticates and returns a token pair.
//   - POST /forgot-password : Emails a reset code (uniform response).
//   - POST /resend-otp      : Issues a fresh code.
//   - POST /reset-password  : Resets the password with a code.
//   - POST /refresh-token   : Rotates a refresh token.
//   - POST /logout          : Revokes a refresh token.
//   - POST /change-password : Changes the password (bearer token).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/signup", handler.signUp)
	router.Post("/verify-otp", handler.verifyOTP)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/resend-otp", handler.resendOTP)
	router.Post("/reset-password", handler.resetPassword)
	router.Post("/refresh-token", handler.refreshToken)
	router.Post("/logout", handler.logout)

	router.Group(func(r chi.Router) {
		if handler.loginLimiter != nil {
			r.Use(middleware.AttemptLimit(handler.loginLimiter))
		}
		r.Post("/login", handler.login)
	})

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/change-password", handler.changePassword)
	})

	return router
}

// # Request Payloads

type signUpRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type loginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resendOTPRequest struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

type resetPasswordRequest struct {
	Email              string `json:"email"`
	Code               string `json:"code"`
	NewPassword        string `json:"newPassword"`
	NewPasswordConfirm string `json:"newPasswordConfirm"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword        string `json:"oldPassword"`
	NewPassword        string `json:"newPassword"`
	NewPasswordConfirm string `json:"newPasswordConfirm"`
	RefreshToken       string `json:"refreshToken"`
}

/*
SignUp handles the creation of a new user account.

POST /auth/signup

Request:
  - Body: signUpRequest

Response:
  - 201: {message}
  - 400: VALIDATION_ERROR or DUPLICATE_USER
*/
func (handler *Handler) signUp(writer http.ResponseWriter, request *http.Request) {
	var input signUpRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		Username(FieldUsername, input.Username).
		Required(FieldEmail, input.Email).
		MaxLen(FieldEmail, input.Email, EmailMaxLength).
		Email(FieldEmail, input.Email).
		Required(FieldFirstName, input.FirstName).
		MaxLen(FieldFirstName, input.FirstName, NameMaxLength).
		Required(FieldLastName, input.LastName).
		MaxLen(FieldLastName, input.LastName, NameMaxLength).
		StrongPassword(FieldPassword, input.Password).
		MaxBytes(FieldPassword, input.Password, PasswordMaxBytes).
		Matches(FieldPasswordConfirm, input.Password, input.PasswordConfirm)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	_, err := handler.authService.SignUp(request.Context(), SignUpInput{
		Username:  input.Username,
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Password:  input.Password,
		IP:        requestutil.Client(request).IP,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusCreated, MessageSignedUp)
}

/*
VerifyOTP confirms the account email with the code sent at signup.

POST /auth/verify-otp

Response:
  - 200: {message}
  - 400: INVALID_OR_EXPIRED_CODE
*/
func (handler *Handler) verifyOTP(writer http.ResponseWriter, request *http.Request) {
	var input verifyOTPRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Required(FieldCode, input.Code)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.VerifyOTP(request.Context(), input.Email, input.Code, requestutil.Client(request).IP); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusOK, MessageVerified)
}

/*
Login authenticates a user and returns a token pair.

POST /auth/login

Request:
  - Body: loginRequest (user is a username or an email)

Response:
  - 200: {accessToken, refreshToken}
  - 401: INVALID_CREDENTIALS, ACCOUNT_NOT_VERIFIED
  - 403: ACCOUNT_NOT_APPROVED, ACCOUNT_LOCKED, PASSWORD_EXPIRED
  - 429: RATE_LIMITED
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUser, input.User).
		Required(FieldPassword, input.Password).
		MaxBytes(FieldPassword, input.Password, PasswordMaxBytes)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	client := requestutil.Client(request)
	pair, err := handler.authService.Login(request.Context(), LoginInput{
		Identifier: input.User,
		Password:   input.Password,
		IP:         client.IP,
		UserAgent:  client.UserAgent,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusOK, pair)
}

/*
ForgotPassword initiates the password recovery flow.

POST /auth/forgot-password

Description: The response is identical whether or not the email exists.
Malformed bodies get the same answer.

Response:
  - 200: {message}
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err == nil && input.Email != "" {
		handler.authService.ForgotPassword(request.Context(), input.Email, requestutil.Client(request).IP)
	}

	respond.Message(writer, http.StatusOK, MessageForgotPassword)
}

/*
ResendOTP issues a fresh verification or reset code.

POST /auth/resend-otp

Response:
  - 200: {message}
  - 400: VALIDATION_ERROR
  - 404: NOT_FOUND
*/
func (handler *Handler) resendOTP(writer http.ResponseWriter, request *http.Request) {
	var input resendOTPRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		OneOf(FieldType, input.Type, string(PurposeVerification), string(PurposeReset))

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err := handler.authService.ResendOTP(request.Context(), input.Email, OTPPurpose(input.Type), requestutil.Client(request).IP)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusOK, MessageOTPResent)
}

/*
ResetPassword completes the password recovery flow.

POST /auth/reset-password

Response:
  - 200: {message}
  - 400: VALIDATION_ERROR or INVALID_OR_EXPIRED_CODE
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Required(FieldCode, input.Code).
		StrongPassword(FieldNewPassword, input.NewPassword).
		MaxBytes(FieldNewPassword, input.NewPassword, PasswordMaxBytes).
		Matches(FieldNewPasswordConfirm, input.NewPassword, input.NewPasswordConfirm)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err := handler.authService.ResetPassword(request.Context(), ResetPasswordInput{
		Email:       input.Email,
		Code:        input.Code,
		NewPassword: input.NewPassword,
		IP:          requestutil.Client(request).IP,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusOK, MessagePasswordReset)
}

/*
RefreshToken rotates a refresh token.

POST /auth/refresh-token

Response:
  - 200: {accessToken, refreshToken}
  - 401: INVALID_REFRESH_TOKEN
*/
func (handler *Handler) refreshToken(writer http.ResponseWriter, request *http.Request) {
	var input refreshTokenRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.RefreshToken == "" {
		respond.Error(writer, request, validate.RequiredError(FieldRefreshToken, "This field is required"))
		return
	}

	client := requestutil.Client(request)
	pair, err := handler.authService.RefreshToken(request.Context(), input.RefreshToken, ClientMeta{
		IP:        client.IP,
		UserAgent: client.UserAgent,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusOK, pair)
}

/*
Logout revokes a refresh token.

POST /auth/logout

Response:
  - 200: {message}, also for unknown or revoked tokens
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	var input refreshTokenRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Logout(request.Context(), input.RefreshToken, requestutil.Client(request).IP); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusOK, MessageLoggedOut)
}

/*
ChangePassword updates the authenticated user's password.

POST /auth/change-password

Description: Every refresh token of the user is revoked except the one sent
in the body, so the calling device stays signed in.

Response:
  - 200: {message}
  - 400: VALIDATION_ERROR
  - 401: INVALID_TOKEN or INVALID_CREDENTIALS
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldOldPassword, input.OldPassword).
		StrongPassword(FieldNewPassword, input.NewPassword).
		MaxBytes(FieldNewPassword, input.NewPassword, PasswordMaxBytes).
		Matches(FieldNewPasswordConfirm, input.NewPassword, input.NewPasswordConfirm)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.authService.ChangePassword(request.Context(), ChangePasswordInput{
		UserID:           userID,
		OldPassword:      input.OldPassword,
		NewPassword:      input.NewPassword,
		KeepRefreshToken: input.RefreshToken,
		IP:               requestutil.Client(request).IP,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusOK, MessagePasswordChanged)
}

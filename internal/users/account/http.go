// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/yomira-auth/internal/platform/middleware"
	requestutil "github.com/taibuivan/yomira-auth/internal/platform/request"
	"github.com/taibuivan/yomira-auth/internal/platform/respond"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/internal/platform/validate"
	"github.com/taibuivan/yomira-auth/internal/users/auth"
	"github.com/taibuivan/yomira-auth/pkg/pagination"
	"github.com/taibuivan/yomira-auth/pkg/pointer"
	"github.com/taibuivan/yomira-auth/pkg/query"
	"github.com/taibuivan/yomira-auth/pkg/slice"
)

// Handler implements the HTTP layer for user administration.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] configured with the account domain's endpoints.
//
// All endpoints require a bearer token. Permissions are decided per call by
// the service.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.list)
	router.Post("/", handler.create)

	router.Get("/me", handler.getMe)

	router.Get("/{id}", handler.get)
	router.Put("/{id}", handler.update)
	router.Patch("/{id}", handler.update)
	router.Delete("/{id}", handler.delete)

	return router
}

// # Response Payloads

// UserResponse is the public view of an account.
type UserResponse struct {
	ID                  string    `json:"id"`
	Username            string    `json:"username"`
	Email               string    `json:"email"`
	FirstName           string    `json:"first_name"`
	LastName            string    `json:"last_name"`
	Status              string    `json:"status"`
	Role                string    `json:"role"`
	IsActive            bool      `json:"is_active"`
	IsVerified          bool      `json:"is_verified"`
	ForcePasswordChange bool      `json:"force_password_change"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// NewUserResponse maps an entity to its public view.
func NewUserResponse(user *auth.User) UserResponse {
	return UserResponse{
		ID:                  user.ID,
		Username:            user.Username,
		Email:               user.Email,
		FirstName:           user.FirstName,
		LastName:            user.LastName,
		Status:              string(user.Status),
		Role:                string(user.Role),
		IsActive:            user.IsActive,
		IsVerified:          user.IsVerified,
		ForcePasswordChange: user.ForcePasswordChange,
		CreatedAt:           user.CreatedAt,
		UpdatedAt:           user.UpdatedAt,
	}
}

// # Request Payloads

type createRequest struct {
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	Password        string  `json:"password"`
	PasswordConfirm string  `json:"passwordConfirm"`
	Status          *string `json:"status"`
	Role            *string `json:"role"`
	IsVerified      *bool   `json:"is_verified"`
}

type updateRequest struct {
	Username            *string `json:"username"`
	Email               *string `json:"email"`
	FirstName           *string `json:"first_name"`
	LastName            *string `json:"last_name"`
	Status              *string `json:"status"`
	Role                *string `json:"role"`
	IsActive            *bool   `json:"is_active"`
	IsVerified          *bool   `json:"is_verified"`
	ForcePasswordChange *bool   `json:"force_password_change"`
}

var (
	statuses = []string{string(auth.StatusPending), string(auth.StatusActive), string(auth.StatusRejected)}
	roles    = []string{string(sec.RoleAdmin), string(sec.RoleUser)}
)

// # Endpoints

/*
GET /users.

Description: Lists accounts for administrators.

Request:
  - Query: search, status (comma-separated), active, page, limit

Response:
  - 200: []UserResponse with pagination metadata
  - 400: VALIDATION_ERROR on an unknown status
  - 403: FORBIDDEN for non-administrators
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	values := request.URL.Query()
	rawStatuses := query.StringSlice(values.Get("status"))

	validator := &validate.Validator{}
	for _, status := range rawStatuses {
		validator.OneOf("status", status, statuses...)
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	filter := ListFilter{
		Search:   values.Get("search"),
		Statuses: slice.Map(rawStatuses, func(status string) auth.Status { return auth.Status(status) }),
		Active:   query.OptionalBool(values.Get("active")),
		Params:   pagination.FromRequest(request),
	}

	users, total, err := handler.accountService.List(request.Context(), actorID, filter, requestutil.Client(request).IP)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, slice.Map(users, NewUserResponse), pagination.NewMeta(filter.Params, total))
}

/*
POST /users.

Description: Creates an account without issuing a verification code.

Response:
  - 201: UserResponse
  - 400: VALIDATION_ERROR or DUPLICATE_USER
*/
func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input createRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(auth.FieldUsername, input.Username).
		Username(auth.FieldUsername, input.Username).
		Required(auth.FieldEmail, input.Email).
		MaxLen(auth.FieldEmail, input.Email, auth.EmailMaxLength).
		Email(auth.FieldEmail, input.Email).
		Required(auth.FieldFirstName, input.FirstName).
		MaxLen(auth.FieldFirstName, input.FirstName, auth.NameMaxLength).
		Required(auth.FieldLastName, input.LastName).
		MaxLen(auth.FieldLastName, input.LastName, auth.NameMaxLength).
		StrongPassword(auth.FieldPassword, input.Password).
		MaxBytes(auth.FieldPassword, input.Password, auth.PasswordMaxBytes).
		Matches(auth.FieldPasswordConfirm, input.Password, input.PasswordConfirm)

	if input.Status != nil {
		validator.OneOf("status", *input.Status, statuses...)
	}
	if input.Role != nil {
		validator.OneOf("role", *input.Role, roles...)
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.Create(request.Context(), actorID, CreateInput{
		Username:   input.Username,
		Email:      input.Email,
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		Password:   input.Password,
		Status:     toStatus(input.Status),
		Role:       toRole(input.Role),
		IsVerified: input.IsVerified,
		IP:         requestutil.Client(request).IP,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, NewUserResponse(user))
}

/*
GET /users/me.

Description: Returns the caller's own account.
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.respondWithUser(writer, request, actorID, actorID)
}

/*
GET /users/{id}.

Response:
  - 200: UserResponse
  - 403: FORBIDDEN when a non-administrator reads another account
  - 404: NOT_FOUND
*/
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.respondWithUser(writer, request, actorID, requestutil.Param(request, "id"))
}

func (handler *Handler) respondWithUser(writer http.ResponseWriter, request *http.Request, actorID, id string) {
	user, err := handler.accountService.Get(request.Context(), actorID, id, requestutil.Client(request).IP)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, NewUserResponse(user))
}

/*
PUT|PATCH /users/{id}.

Description: Applies a partial update. Omitted fields are left unchanged.

Response:
  - 200: UserResponse
  - 400: VALIDATION_ERROR or DUPLICATE_USER
  - 403: FORBIDDEN
  - 404: NOT_FOUND
*/
func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if input.Username != nil {
		validator.Username(auth.FieldUsername, *input.Username)
	}
	if input.Email != nil {
		validator.MaxLen(auth.FieldEmail, *input.Email, auth.EmailMaxLength).
			Email(auth.FieldEmail, *input.Email)
	}
	if input.FirstName != nil {
		validator.Required(auth.FieldFirstName, *input.FirstName).
			MaxLen(auth.FieldFirstName, *input.FirstName, auth.NameMaxLength)
	}
	if input.LastName != nil {
		validator.Required(auth.FieldLastName, *input.LastName).
			MaxLen(auth.FieldLastName, *input.LastName, auth.NameMaxLength)
	}
	if input.Status != nil {
		validator.OneOf("status", *input.Status, statuses...)
	}
	if input.Role != nil {
		validator.OneOf("role", *input.Role, roles...)
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.Update(request.Context(), actorID, requestutil.Param(request, "id"), UpdateInput{
		Username:            input.Username,
		Email:               input.Email,
		FirstName:           input.FirstName,
		LastName:            input.LastName,
		Status:              toStatus(input.Status),
		Role:                toRole(input.Role),
		IsActive:            input.IsActive,
		IsVerified:          input.IsVerified,
		ForcePasswordChange: input.ForcePasswordChange,
		IP:                  requestutil.Client(request).IP,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, NewUserResponse(user))
}

/*
DELETE /users/{id}.

Description: Soft-deletes the account and revokes its refresh tokens.

Response:
  - 204: No content
  - 403: FORBIDDEN (non-administrators, or self-deletion)
  - 404: NOT_FOUND
*/
func (handler *Handler) delete(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.accountService.Delete(request.Context(), actorID, requestutil.Param(request, "id"), requestutil.Client(request).IP)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Helpers

func toStatus(value *string) *auth.Status {
	if value == nil {
		return nil
	}
	return pointer.To(auth.Status(*value))
}

func toRole(value *string) *sec.UserRole {
	if value == nil {
		return nil
	}
	return pointer.To(sec.UserRole(*value))
}

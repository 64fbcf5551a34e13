// Package provision implements the one code path that may create a new
// principal and assign its initial role.
//
// The caller's role is always re-derived server-side from the profile
// store. A role claim in the request body or in the token is input data,
// never a trust boundary.
package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/audit"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/identity"
)

var (
	// ErrUnauthenticated rejects absent or malformed bearer credentials
	// before any external call is made.
	ErrUnauthenticated = errors.New("Missing or malformed bearer token")

	// ErrInvalidToken rejects credentials the identity provider refused.
	ErrInvalidToken = errors.New("Invalid token")

	// ErrForbidden rejects authenticated callers that are not admins.
	ErrForbidden = errors.New("Forbidden (admin only)")
)

// InputError rejects a request with missing or malformed fields before
// any external call is made.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

// InviteError surfaces the identity provider's rejection of the
// invite-or-create call, message unmodified.
type InviteError struct {
	Message string
}

func (e *InviteError) Error() string { return e.Message }

// Request is the provisioning request body.
type Request struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Password string `json:"password,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Result is the successful outcome: the new principal's identifier.
type Result struct {
	UserID string
	Role   core.Role
}

// IdentityClient is the external identity collaborator surface the
// service needs.
type IdentityClient interface {
	UserFromToken(ctx context.Context, accessToken string) (*identity.User, error)
	InviteByEmail(ctx context.Context, email, fullName, redirectTo string) (*identity.User, error)
	CreateUser(ctx context.Context, email, password, fullName string) (*identity.User, error)
}

// ProfileStore is the profile persistence surface: one keyed read for
// the caller, one keyed upsert for the target.
type ProfileStore interface {
	GetProfile(ctx context.Context, principalID string) (core.Profile, error)
	UpsertProfile(ctx context.Context, p core.Profile) error
}

// ReconcilePublisher queues a profile repair when the upsert fails after
// a successful invite.
type ReconcilePublisher interface {
	PublishProfileReconcile(ctx context.Context, userID, fullName, role string) error
}

type Service struct {
	identity       IdentityClient
	profiles       ProfileStore
	publisher      ReconcilePublisher
	recorder       *audit.Recorder
	inviteRedirect string
}

func NewService(identityClient IdentityClient, profiles ProfileStore, publisher ReconcilePublisher, recorder *audit.Recorder, inviteRedirect string) *Service {
	return &Service{
		identity:       identityClient,
		profiles:       profiles,
		publisher:      publisher,
		recorder:       recorder,
		inviteRedirect: inviteRedirect,
	}
}

// Configured reports whether the service has its required collaborators.
func (s *Service) Configured() bool {
	return s != nil && s.identity != nil && s.profiles != nil
}

// Provision runs the gate sequence:
//
//	bearer well-formed -> token exchanged -> caller is admin ->
//	input valid -> invite-or-create -> profile upserted
//
// An error at any gate aborts all later steps. There is no rollback for
// partial effects: if the profile upsert fails after a successful
// invite, the error is surfaced and a reconcile message is queued.
func (s *Service) Provision(ctx context.Context, bearer string, req Request) (Result, error) {
	// Gate 1: credential present and well-formed, checked locally before
	// any external call.
	if !identity.WellFormedToken(bearer) {
		return Result{}, ErrUnauthenticated
	}

	// Gate 2: exchange the token for the caller's identity.
	caller, err := s.identity.UserFromToken(ctx, bearer)
	if err != nil {
		return Result{}, ErrInvalidToken
	}

	// Gate 3: the caller's role comes from the profile store, never from
	// the request or the token claims.
	profile, err := s.profiles.GetProfile(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, core.ErrProfileNotFound) {
			s.record(ctx, caller.ID, audit.StatusDenied, "", "no profile")
			return Result{}, ErrForbidden
		}
		return Result{}, fmt.Errorf("look up caller profile: %w", err)
	}
	if !core.CapabilitiesFor(profile.Role).CanAdminister() {
		s.record(ctx, caller.ID, audit.StatusDenied, "", "caller role "+string(profile.Role))
		return Result{}, ErrForbidden
	}

	// Gate 4: validate input before touching the identity provider.
	email := strings.TrimSpace(req.Email)
	fullName := strings.TrimSpace(req.FullName)
	if email == "" || fullName == "" {
		return Result{}, &InputError{Message: "email and fullName are required"}
	}
	role := core.NormalizeRole(req.Role)
	detail := "role " + string(role)
	if req.Role != "" && !core.ValidRole(req.Role) {
		detail += " (defaulted from " + req.Role + ")"
	}

	// Gate 5: invite, or create directly when a password was supplied.
	var target *identity.User
	if req.Password != "" {
		target, err = s.identity.CreateUser(ctx, email, req.Password, fullName)
	} else {
		target, err = s.identity.InviteByEmail(ctx, email, fullName, s.inviteRedirect)
	}
	if err != nil {
		msg := err.Error()
		var apiErr *identity.APIError
		if errors.As(err, &apiErr) {
			msg = apiErr.Message
		}
		s.record(ctx, caller.ID, audit.StatusError, "", "invite failed: "+msg)
		return Result{}, &InviteError{Message: msg}
	}

	// Step 6: sync the profile. Attempted even for a re-invited,
	// unconfirmed principal so the role matches the latest request.
	err = s.profiles.UpsertProfile(ctx, core.Profile{
		ID:       target.ID,
		FullName: fullName,
		Role:     role,
	})
	if err != nil {
		if s.publisher != nil {
			if pubErr := s.publisher.PublishProfileReconcile(ctx, target.ID, fullName, string(role)); pubErr != nil {
				err = fmt.Errorf("%w (reconcile queue also failed: %v)", err, pubErr)
			}
		}
		s.record(ctx, caller.ID, audit.StatusError, target.ID, "profile sync failed: "+err.Error())
		return Result{}, fmt.Errorf("invite sent but profile sync failed: %w", err)
	}

	s.record(ctx, caller.ID, audit.StatusOK, target.ID, detail)
	return Result{UserID: target.ID, Role: role}, nil
}

func (s *Service) record(ctx context.Context, callerID, status, targetID, detail string) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, callerID, audit.ActionProvision, "profile", targetID, status, detail)
}

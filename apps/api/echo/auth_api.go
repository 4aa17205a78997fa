package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/access"
	"github.com/trezcool/campus/core/user"
)

type authApi struct {
	*Server
	svc *user.Service
}

func registerAuthAPI(s *Server, g *echo.Group, authn, rateLimit echo.MiddlewareFunc) {
	api := authApi{Server: s, svc: s.deps.UserSvc}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login, rateLimit)
	ag.POST("/register", api.register, rateLimit)
	ag.POST("/verify-email", api.verifyEmail)
	ag.POST("/password-reset", api.resetPassword, rateLimit)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset, rateLimit)

	// authed endpoints
	ag.GET("/me", api.me, authn, s.guard(access.AuthMe))
	ag.POST("/token-refresh", api.refreshToken, authn, s.guard(access.AuthTokenRefresh))
	ag.POST("/change-password", api.changePassword, authn, s.guard(access.AuthChangePassword))
}

type (
	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}
)

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data user.LoginCredentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginCredentials")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data)
	if err != nil {
		api.metrics.logins.WithLabelValues(loginOutcome(err)).Inc()
		return errors.Wrap(err, "authenticating")
	}
	token, err := api.tokens.Issue(usr.Account)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	api.metrics.logins.WithLabelValues("success").Inc()
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
}

func loginOutcome(err error) string {
	switch errors.Cause(err).(type) {
	case core.LockedError:
		return "locked"
	}
	switch errors.Cause(err) {
	case user.ErrInvalidCredentials:
		return "invalid_credentials"
	case user.ErrEmailNotVerified, user.ErrAccountInactive:
		return "refused"
	}
	return "error"
}

func (api *authApi) register(ctx echo.Context) error {
	var data user.Registration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Registration")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	api.invalidateProfiles(ctx)
	return ctx.JSON(http.StatusCreated, dataResponse{
		Data:    usr,
		Message: "Registration successful. Please check your email to verify your account.",
	})
}

func (api *authApi) verifyEmail(ctx echo.Context) error {
	var data user.VerifyEmail
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyEmail")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	if err := api.svc.VerifyEmail(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "verifying email")
	}
	return ctx.JSON(http.StatusOK, dataResponse{Message: "Email address verified."})
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data user.PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil {
		// do not return errors to attackers
		api.deps.Logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, dataResponse{
		Message: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, dataResponse{Message: "Password has been reset with the new password."})
}

func (api *authApi) me(ctx echo.Context) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dataResponse{Data: usr})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	claims, err := contextClaims(ctx)
	if err != nil {
		return err
	}
	// check if user is still active
	if !usr.Profile.IsActive {
		return errors.Wrap(user.ErrAccountInactive, "refreshing token")
	}

	token, err := api.tokens.Refresh(claims, usr.Account)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *authApi) changePassword(ctx echo.Context) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	var data user.ChangePassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	if err := data.Validate(api.deps.Validate, usr.Profile); err != nil {
		return err
	}

	if err := api.svc.ChangePassword(ctx.Request().Context(), usr, data); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, dataResponse{Message: "Password changed successfully."})
}

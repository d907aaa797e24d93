package controllers

import (
	"github.com/shashiranjanraj/shopfront/app/services"
	"github.com/shashiranjanraj/shopfront/pkg/ctx"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

// Register handles POST /api/auth/register.
func (ac *AuthController) Register(c *ctx.Context) {
	var in services.RegisterInput
	if !c.BindJSON(&in) {
		return
	}
	user, err := ac.auth.Register(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(map[string]any{"message": "user registered successfully", "user": user})
}

// Login handles POST /api/auth/login.
func (ac *AuthController) Login(c *ctx.Context) {
	var in services.LoginInput
	if !c.BindJSON(&in) {
		return
	}
	sess, err := ac.auth.Login(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(map[string]any{"message": "login successful", "token": sess.Token, "user": sess.User})
}

func (ac *AuthController) UpdateProfile(c *ctx.Context) {
	var in services.ProfileInput
	if !c.BindJSON(&in) {
		return
	}
	sess, err := ac.auth.UpdateProfile(c.Context(), c.Claims().UserID, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(map[string]any{"message": "profile updated successfully", "token": sess.Token, "user": sess.User})
}

func (ac *AuthController) Profile(c *ctx.Context) {
	user, err := ac.auth.Profile(c.Context(), c.Claims(), c.Param("id"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(user)
}

func (ac *AuthController) Users(c *ctx.Context) {
	users, err := ac.auth.Users(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(users)
}

func (ac *AuthController) Logout(c *ctx.Context) {
	if err := ac.auth.Logout(c.Context(), c.Claims()); err != nil {
		c.Fail(err)
		return
	}
	c.Message("logged out successfully")
}

// CreateAdmin handles POST /api/admin/create-admin. Despite the name it
// creates either role inside the caller's store.
func (ac *AuthController) CreateAdmin(c *ctx.Context) {
	var in services.CreateUserInput
	if !c.BindJSON(&in) {
		return
	}
	user, err := ac.auth.CreateUser(c.Context(), c.Claims(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(map[string]any{"message": "user created successfully", "user": user})
}

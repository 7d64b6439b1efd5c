package feedstate

import (
	"sync"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// identity of the currently connected user, shared by every feed
// engine created from one client. the user id may be empty for
// anonymous read-only use

type ClientContext struct {
	stateLock sync.Mutex

	userId string
}

func NewClientContext() *ClientContext {
	return &ClientContext{}
}

func NewClientContextFromToken(token string) (*ClientContext, error) {
	claims, err := ParseTokenUnverified(token)
	if err != nil {
		return nil, err
	}
	return &ClientContext{
		userId: claims.UserId,
	}, nil
}

func (self *ClientContext) UserId() string {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.userId
}

func (self *ClientContext) SetUserId(userId string) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	self.userId = userId
}

type TokenClaims struct {
	UserId string
	Role   string
}

// the auth token is issued and verified by the platform; the client
// only needs the identity claims out of it
func ParseTokenUnverified(token string) (*TokenClaims, error) {
	parser := gojwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, gojwt.MapClaims{})
	if err != nil {
		return nil, err
	}

	claims := parsed.Claims.(gojwt.MapClaims)

	tokenClaims := &TokenClaims{}
	if userId, ok := claims["user_id"]; ok {
		if userIdStr, ok := userId.(string); ok {
			tokenClaims.UserId = userIdStr
		}
	}
	if role, ok := claims["role"]; ok {
		if roleStr, ok := role.(string); ok {
			tokenClaims.Role = roleStr
		}
	}

	return tokenClaims, nil
}

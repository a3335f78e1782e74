package api

import (
	"crypto/hmac"
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/1804crypto/protect-the-streams-sub000/internal/constants"
	"github.com/gin-gonic/gin"
)

const sessionTTL = 24 * time.Hour

type sessionClaims struct {
	Sub  string `json:"sub"`  // player (wallet) ID
	Name string `json:"name"` // display name
	Iat  int64  `json:"iat"`
	Exp  int64  `json:"exp"`
}

var devSecret []byte

func getSessionSecret() ([]byte, error) {
	secret := os.Getenv(constants.EnvSessionSecret)
	if secret == "" {
		// Generate an in-memory secret for development if not set
		if len(devSecret) == 0 {
			devSecret = make([]byte, 32)
			if _, err := crand.Read(devSecret); err != nil {
				return nil, errors.New("failed to generate dev session secret")
			}
		}
		return devSecret, nil
	}
	return []byte(secret), nil
}

func b64url(data []byte) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString(data), "=")
}

func b64urlDecode(s string) ([]byte, error) {
	// pad to multiple of 4
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	return base64.URLEncoding.DecodeString(s)
}

func signHS256(data string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(data))
	sig := mac.Sum(nil)
	return b64url(sig)
}

func createSessionToken(playerID, name string, ttl time.Duration) (string, error) {
	secret, err := getSessionSecret()
	if err != nil {
		return "", err
	}
	header := map[string]string{"alg": "HS256", "typ": "JWT"}
	hdrJSON, _ := json.Marshal(header)
	now := time.Now().Unix()
	claims := sessionClaims{Sub: playerID, Name: name, Iat: now, Exp: now + int64(ttl.Seconds())}
	clJSON, _ := json.Marshal(claims)
	unsigned := fmt.Sprintf("%s.%s", b64url(hdrJSON), b64url(clJSON))
	sig := signHS256(unsigned, secret)
	return unsigned + "." + sig, nil
}

func parseAndValidateSession(token string) (*sessionClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, errors.New("invalid token format")
	}
	secret, err := getSessionSecret()
	if err != nil {
		return nil, err
	}
	unsigned := parts[0] + "." + parts[1]
	expected := signHS256(unsigned, secret)
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return nil, errors.New("invalid signature")
	}
	payloadBytes, err := b64urlDecode(parts[1])
	if err != nil {
		return nil, err
	}
	var claims sessionClaims
	if err := json.Unmarshal(payloadBytes, &claims); err != nil {
		return nil, err
	}
	if time.Now().Unix() > claims.Exp {
		return nil, errors.New("token expired")
	}
	return &claims, nil
}

type sessionRequest struct {
	PlayerID    string `json:"player_id" binding:"required"`
	DisplayName string `json:"display_name"`
}

// CreateSession issues a session cookie for the given player identity and
// makes sure a profile row exists. Wallet signature verification happens
// upstream; this service only binds the session to the claimed ID.
func (h *Handler) CreateSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		name = req.PlayerID
	}
	profile, err := h.repo.UpsertProfile(req.PlayerID, name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchStats})
		return
	}
	token, err := createSessionToken(profile.PlayerID, profile.DisplayName, sessionTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrInvalidSession})
		return
	}
	setSessionCookie(c, token, sessionTTL)
	c.JSON(http.StatusOK, gin.H{"token": token, "player_id": profile.PlayerID, "display_name": profile.DisplayName})
}

// DeleteSession clears the session cookie.
func (h *Handler) DeleteSession(c *gin.Context) {
	clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{constants.JSONKeyMessage: "session cleared"})
}

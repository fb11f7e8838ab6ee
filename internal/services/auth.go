package services

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"zenith-backend/internal/models"
)

const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
}

// Claims is the identity carried by a verified token.
type Claims struct {
	UserID   int64
	Name     string
	Email    string
	Username string
	Role     models.Role
	Type     string
	ID       string
}

type TokenService struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (t TokenService) HashPassword(raw string) (string, error) {
	return hashArgon2id(raw)
}

func (t TokenService) VerifyPassword(raw, hashed string) bool {
	if strings.HasPrefix(hashed, "$argon2") {
		return verifyArgon2id(raw, hashed)
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(raw)) == nil
}

func (t TokenService) sign(user models.User, typ string, ttl time.Duration) (string, int64, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"iss":      t.Issuer,
		"sub":      strconv.FormatInt(user.ID, 10),
		"typ":      typ,
		"jti":      uuid.NewString(),
		"name":     user.FullName(),
		"email":    user.Email,
		"username": user.Username,
		"role":     string(user.Role),
		"iat":      now.Unix(),
		"exp":      exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.Secret)
	return signed, exp.Unix(), err
}

func (t TokenService) CreateAccessToken(user models.User) (string, int64, error) {
	return t.sign(user, TokenAccess, t.AccessTTL)
}

func (t TokenService) CreateRefreshToken(user models.User) (string, error) {
	signed, _, err := t.sign(user, TokenRefresh, t.RefreshTTL)
	return signed, err
}

func (t TokenService) IssuePair(user models.User) (TokenPair, error) {
	access, exp, err := t.CreateAccessToken(user)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := t.CreateRefreshToken(user)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

func (t TokenService) ParseToken(tokenStr string) (*jwt.Token, jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.Secret, nil
	}, jwt.WithIssuer(t.Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return token, claims, err
}

// Verify parses tokenStr and checks it is a valid token of the wanted type.
func (t TokenService) Verify(tokenStr, typ string) (Claims, error) {
	token, claims, err := t.ParseToken(tokenStr)
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims["typ"] != typ {
		return Claims{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return Claims{}, ErrInvalidToken
	}
	out := Claims{UserID: userID, Type: typ}
	out.Name, _ = claims["name"].(string)
	out.Email, _ = claims["email"].(string)
	out.Username, _ = claims["username"].(string)
	out.ID, _ = claims["jti"].(string)
	role, _ := claims["role"].(string)
	out.Role = models.Role(role)
	if !out.Role.Valid() {
		return Claims{}, ErrInvalidToken
	}
	return out, nil
}

type argon2Params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLength  int
	keyLength   int
}

func hashArgon2id(raw string) (string, error) {
	params := argon2Params{
		memory:      65536,
		iterations:  3,
		parallelism: 1,
		saltLength:  16,
		keyLength:   32,
	}
	salt := make([]byte, params.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(raw), salt, params.iterations, params.memory, params.parallelism, uint32(params.keyLength))
	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Key := base64.RawStdEncoding.EncodeToString(key)
	return "$argon2id$v=19$m=" + strconv.FormatUint(uint64(params.memory), 10) +
		",t=" + strconv.FormatUint(uint64(params.iterations), 10) +
		",p=" + strconv.FormatUint(uint64(params.parallelism), 10) +
		"$" + b64Salt + "$" + b64Key, nil
}

func verifyArgon2id(raw, encoded string) bool {
	params, salt, hash, err := decodeArgon2id(encoded)
	if err != nil {
		return false
	}
	key := argon2.IDKey([]byte(raw), salt, params.iterations, params.memory, params.parallelism, uint32(params.keyLength))
	return subtle.ConstantTimeCompare(hash, key) == 1
}

func decodeArgon2id(encoded string) (argon2Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return argon2Params{}, nil, nil, errors.New("invalid hash format")
	}
	if !strings.HasPrefix(parts[1], "argon2") {
		return argon2Params{}, nil, nil, errors.New("invalid hash type")
	}
	var params argon2Params
	for _, kv := range strings.Split(parts[3], ",") {
		pair := strings.SplitN(kv, "=", 2)
		if len(pair) != 2 {
			continue
		}
		value, err := strconv.ParseUint(pair[1], 10, 32)
		if err != nil {
			return argon2Params{}, nil, nil, errors.New("invalid hash parameters")
		}
		switch pair[0] {
		case "m":
			params.memory = uint32(value)
		case "t":
			params.iterations = uint32(value)
		case "p":
			params.parallelism = uint8(value)
		}
	}
	if params.memory == 0 || params.iterations == 0 || params.parallelism == 0 {
		return argon2Params{}, nil, nil, errors.New("invalid hash parameters")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return argon2Params{}, nil, nil, err
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return argon2Params{}, nil, nil, err
	}
	params.saltLength = len(salt)
	params.keyLength = len(hash)
	return params, salt, hash, nil
}

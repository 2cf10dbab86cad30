package jwt

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims 身份声明; ProjectID 非空表示访客令牌, 只能访问该项目
type Claims struct {
	UserID    int64  `json:"uid,omitempty"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	ProjectID *int64 `json:"project_id,omitempty"`
	Guest     bool   `json:"guest,omitempty"`
	jwt.RegisteredClaims
}

// Service 签发与校验令牌
type Service interface {
	Issue(claims Claims, ttl time.Duration) (string, error)
	// Verify 任何失败（过期, 签名不符, 格式错误）都返回 ok=false, 不向调用方暴露底层错误
	Verify(token string) (*Claims, bool)
}

type service struct {
	secret []byte
	now    func() time.Time
}

func NewService(secret string) Service {
	return &service{secret: []byte(secret), now: time.Now}
}

func (s *service) Issue(claims Claims, ttl time.Duration) (string, error) {
	now := s.now()
	if claims.Subject == "" {
		claims.Subject = strconv.FormatInt(claims.UserID, 10)
	}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("签发Token失败: %w", err)
	}
	return signed, nil
}

func (s *service) Verify(tokenString string) (*Claims, bool) {
	if tokenString == "" {
		return nil, false
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, false
	}
	return claims, true
}

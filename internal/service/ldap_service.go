package service

import (
	"fmt"

	"github.com/go-ldap/ldap/v3"

	"taskhub/internal/pkg/config"
	pkgErrors "taskhub/pkg/errors"
)

// LDAPUser 目录中的用户信息
type LDAPUser struct {
	Username    string
	Email       string
	DisplayName string
}

type LDAPService interface {
	Authenticate(username, password string) (*LDAPUser, error)
}

type ldapService struct {
	cfg *config.LDAPConfig
}

func NewLDAPService(cfg *config.LDAPConfig) LDAPService {
	return &ldapService{
		cfg: cfg,
	}
}

func (s *ldapService) Authenticate(username, password string) (*LDAPUser, error) {
	if !s.cfg.Enabled {
		return nil, pkgErrors.Unauthenticated("LDAP认证未启用")
	}
	if password == "" {
		// 空密码会被多数目录当成匿名绑定
		return nil, pkgErrors.ErrInvalidLogin
	}

	conn, err := s.connect()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	userDN, attributes, err := s.searchUser(conn, username)
	if err != nil {
		return nil, err
	}

	// 验证密码
	if err := conn.Bind(userDN, password); err != nil {
		return nil, pkgErrors.ErrInvalidLogin
	}

	return &LDAPUser{
		Username:    username,
		Email:       attributes[s.cfg.Attributes.Email],
		DisplayName: attributes[s.cfg.Attributes.DisplayName],
	}, nil
}

func (s *ldapService) connect() (*ldap.Conn, error) {
	address := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var conn *ldap.Conn
	var err error
	if s.cfg.UseSSL {
		conn, err = ldap.DialURL("ldaps://" + address)
	} else {
		conn, err = ldap.DialURL("ldap://" + address)
	}
	if err != nil {
		return nil, pkgErrors.Internal("LDAP连接失败", err)
	}

	// 使用管理员账号绑定
	if err := conn.Bind(s.cfg.BindDN, s.cfg.BindPassword); err != nil {
		conn.Close()
		return nil, pkgErrors.Internal("LDAP绑定失败", err)
	}

	return conn, nil
}

func (s *ldapService) searchUser(conn *ldap.Conn, username string) (string, map[string]string, error) {
	filter := fmt.Sprintf(s.cfg.UserFilter, ldap.EscapeFilter(username))
	attrs := []string{s.cfg.Attributes.Username, s.cfg.Attributes.Email, s.cfg.Attributes.DisplayName}

	searchRequest := ldap.NewSearchRequest(
		s.cfg.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		0,
		false,
		filter,
		attrs,
		nil,
	)

	result, err := conn.Search(searchRequest)
	if err != nil {
		return "", nil, pkgErrors.Internal("LDAP搜索失败", err)
	}

	switch len(result.Entries) {
	case 0:
		return "", nil, pkgErrors.ErrInvalidLogin
	case 1:
	default:
		return "", nil, pkgErrors.Unauthenticated("找到多个匹配的目录用户")
	}

	entry := result.Entries[0]
	attributes := make(map[string]string, len(attrs))
	for _, attr := range attrs {
		attributes[attr] = entry.GetAttributeValue(attr)
	}
	return entry.DN, attributes, nil
}

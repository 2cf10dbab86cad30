package service

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"taskhub/internal/model"
	"taskhub/internal/pkg/crypto"
	"taskhub/internal/repository"
	"taskhub/pkg/constants"
)

// SeedData 初始化数据文件格式
type SeedData struct {
	Users []SeedUser `yaml:"users"`
	Teams []SeedTeam `yaml:"teams"`
}

type SeedUser struct {
	Name     string   `yaml:"name"`
	Email    string   `yaml:"email"`
	Password string   `yaml:"password"`
	Role     string   `yaml:"role"`
	Skills   []string `yaml:"skills"`
}

type SeedTeam struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	LeaderEmail  string   `yaml:"leader_email"`
	MemberEmails []string `yaml:"member_emails"`
}

// LoadSeedFile 读取并校验初始化数据
func LoadSeedFile(path string) (*SeedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取初始化数据失败: %w", err)
	}
	var data SeedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("解析初始化数据失败: %w", err)
	}

	hasAdmin := false
	for i, u := range data.Users {
		if u.Email == "" || u.Password == "" {
			return nil, fmt.Errorf("第 %d 个用户缺少 email 或 password", i+1)
		}
		if u.Role == "" {
			data.Users[i].Role = constants.RoleMember
		} else if !constants.IsValidRole(u.Role) {
			return nil, fmt.Errorf("用户 %s 的角色无效: %s", u.Email, u.Role)
		}
		if data.Users[i].Role == constants.RoleAdmin {
			hasAdmin = true
		}
	}
	if len(data.Users) > 0 && !hasAdmin {
		return nil, fmt.Errorf("初始化数据中至少需要一名 Admin")
	}
	return &data, nil
}

// Bootstrap 用户表为空时导入初始化数据, 已有数据时跳过; 返回导入的用户数
func Bootstrap(ctx context.Context, store *repository.Store, data *SeedData, logger *zap.Logger) (int, error) {
	if data == nil || len(data.Users) == 0 {
		return 0, nil
	}

	count, err := store.Users.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		logger.Debug("用户表非空, 跳过初始化数据", zap.Int64("users", count))
		return 0, nil
	}

	byEmail := make(map[string]int64, len(data.Users))
	for _, su := range data.Users {
		hash, err := crypto.HashPassword(su.Password)
		if err != nil {
			return 0, fmt.Errorf("密码加密失败: %w", err)
		}
		user := &model.User{
			Name:     su.Name,
			Email:    constants.NormalizeEmail(su.Email),
			Password: hash,
			Role:     su.Role,
			Skills:   normalizeSkills(su.Skills),
		}
		if user.Name == "" {
			user.Name = user.Email
		}
		if err := store.Users.Create(ctx, user); err != nil {
			return 0, err
		}
		byEmail[user.Email] = user.ID
	}

	for _, st := range data.Teams {
		team := &model.Team{Name: st.Name}
		if st.Description != "" {
			desc := st.Description
			team.Description = &desc
		}
		if id, ok := byEmail[constants.NormalizeEmail(st.LeaderEmail)]; ok {
			team.LeaderID = &id
		}
		for _, email := range st.MemberEmails {
			if id, ok := byEmail[constants.NormalizeEmail(email)]; ok {
				team.Members = append(team.Members, model.TeamMember{UserID: id})
			}
		}
		if err := store.Teams.Create(ctx, team); err != nil {
			return 0, err
		}
	}

	logger.Info("已导入初始化数据", zap.Int("users", len(data.Users)), zap.Int("teams", len(data.Teams)))
	return len(data.Users), nil
}

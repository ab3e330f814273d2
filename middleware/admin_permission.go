package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Permission 接口权限：method + path pattern 允许的角色
// pattern 格式如 /api/v1/ml/runs/:run_id，支持 :param 占位符匹配单段
type Permission struct {
	Method string
	Path   string
	Roles  []string
}

// PermissionMiddleware 接口权限校验中间件
// 需在 JWTAuth 之后使用。管理员绕过；未列入表中的接口对所有已认证用户开放，按表顺序取第一条匹配。
func PermissionMiddleware(perms []Permission) gin.HandlerFunc {
	table := make([]Permission, len(perms))
	for i, p := range perms {
		table[i] = Permission{Method: strings.ToUpper(p.Method), Path: normalizePath(p.Path), Roles: p.Roles}
	}

	return func(c *gin.Context) {
		role := GetCurrentRole(c)
		if role == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "code": http.StatusUnauthorized, "message": "请先登录"})
			c.Abort()
			return
		}

		// 超管绕过
		if role == RoleAdmin {
			c.Next()
			return
		}

		roles, restricted := matchAPIPermission(c.Request.Method, c.Request.URL.Path, table)
		if !restricted || hasRole(roles, role) {
			c.Next()
			return
		}

		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"code":    http.StatusForbidden,
			"message": "权限不足",
		})
		c.Abort()
	}
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// matchAPIPermission 查找 method+path 匹配的规则，返回允许的角色
func matchAPIPermission(method, path string, table []Permission) ([]string, bool) {
	path = normalizePath(path)
	for _, p := range table {
		if p.Method != method {
			continue
		}
		if matchPath(path, p.Path) {
			return p.Roles, true
		}
	}
	return nil, false
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	return p
}

// matchPath 检查实际路径是否匹配 pattern（支持 :id 等占位符）
// /api/v1/ml/runs/run-7 匹配 /api/v1/ml/runs/:run_id
func matchPath(actual, pattern string) bool {
	actual = normalizePath(actual)
	pattern = normalizePath(pattern)
	a := splitPath(actual)
	p := splitPath(pattern)
	if len(a) != len(p) {
		return false
	}
	for i := range a {
		if len(p[i]) > 0 && p[i][0] == ':' {
			if a[i] == "" {
				return false
			}
			continue
		}
		if a[i] != p[i] {
			return false
		}
	}
	return true
}

func splitPath(s string) []string {
	s = strings.Trim(s, "/")
	if s == "" {
		return nil
	}
	return strings.Split(s, "/")
}

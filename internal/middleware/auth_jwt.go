package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"backoffice/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxIdentityKey = "identity" // model.Identity
)

// bearerAuth用のJWT検証ミドルウェア。subとrolesからIdentityを作る。
func AuthJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//Authorizationヘッダを取得
			authz := c.Request().Header.Get("Authorization")
			if authz == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//Bearer形式か確認してtokenを抜く
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			rawToken := strings.TrimSpace(parts[1])
			if rawToken == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//JWTをパースして検証する
			token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
				if t.Method != jwt.SigningMethodHS256 {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil || token == nil || !token.Valid {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			userID, err := parseUserID(claims["sub"])
			if err != nil || userID <= 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//rolesは配列、古いトークンはroleの1つだけ
			raw := claims["roles"]
			if raw == nil {
				raw = claims["role"]
			}
			roles, err := parseRoles(raw)
			if err != nil || len(roles) == 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			c.Set(CtxIdentityKey, model.NewIdentity(userID, roles...))
			return next(c)
		}
	}
}

// IdentityFromはAuthJWTが入れたIdentityを取り出す
func IdentityFrom(c echo.Context) (model.Identity, bool) {
	id, ok := c.Get(CtxIdentityKey).(model.Identity)
	if !ok || !id.Valid() {
		return model.Identity{}, false
	}
	return id, true
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}

// user_idをint64に変換する
func parseUserID(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errors.New("invalid sub")
	}
}

// 知らないroleが混ざっていたら拒否
func parseRoles(v interface{}) ([]model.Role, error) {
	var raw []string
	switch t := v.(type) {
	case string:
		raw = strings.Split(t, ",")
	case []interface{}:
		for _, r := range t {
			s, ok := r.(string)
			if !ok {
				return nil, errors.New("invalid roles")
			}
			raw = append(raw, s)
		}
	default:
		return nil, errors.New("invalid roles")
	}

	roles := make([]model.Role, 0, len(raw))
	for _, s := range raw {
		role, err := model.ToRole(s)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

package token

import "intranet_chat/pkg/config"

// 測試時可覆蓋
var (
	GenerateJWTFunc = GenerateJWT
	ParseJWTFunc    = ParseJWT
)

// GenerateJWTWrapper 讓 member use case 測試可替換簽發流程
func GenerateJWTWrapper(memberID, role string) (string, error) {
	return GenerateJWTFunc(memberID, role, config.EnvConfig.APIGateway)
}

// ParseJWTWrapper 讓 member use case 測試可替換解析流程
func ParseJWTWrapper(t string) (*Claims, error) {
	return ParseJWTFunc(t)
}

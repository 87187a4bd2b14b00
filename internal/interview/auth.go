package interview

import "crypto/subtle"

// Gate сравнивает введенный токен с секретом процесса
type Gate struct {
	secret []byte
}

func NewGate(secret string) *Gate {
	return &Gate{secret: []byte(secret)}
}

// Verify возвращает ошибку KindAuth при несовпадении. Пустой секрет не открывает доступ.
func (g *Gate) Verify(token string) error {
	if len(g.secret) == 0 || subtle.ConstantTimeCompare([]byte(token), g.secret) != 1 {
		return newError(KindAuth, "неверный токен", nil)
	}
	return nil
}

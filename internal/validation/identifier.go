package validation

import (
	"fmt"
	"regexp"
)

// IdentifierPattern определяет допустимое имя колонки SQL
// Только строчные латинские буквы, цифры и нижнее подчеркивание, первая не цифра
// Длина: 1-63 символа (ограничение Postgres)
var IdentifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// MaxIdentifierLen максимальная длина идентификатора
const MaxIdentifierLen = 63

// ValidateIdentifier проверяет, что имя колонки можно безопасно подставить в SQL
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("identifier cannot be empty")
	}

	if len(name) > MaxIdentifierLen {
		return fmt.Errorf("identifier must not exceed %d characters", MaxIdentifierLen)
	}

	if !IdentifierPattern.MatchString(name) {
		return fmt.Errorf("identifier %q can only contain lowercase letters (a-z), numbers (0-9), and underscores (_)", name)
	}

	return nil
}

// ValidatePassphrase проверяет минимальные требования к ключу шифрования резервных копий
// Минимум 12 символов
func ValidatePassphrase(passphrase string) error {
	const minPassphraseLen = 12

	if passphrase == "" {
		return fmt.Errorf("passphrase cannot be empty")
	}

	if len(passphrase) < minPassphraseLen {
		return fmt.Errorf("passphrase must be at least %d characters long", minPassphraseLen)
	}

	return nil
}

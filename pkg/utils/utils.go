package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// IsEmpty checks if a string is empty.
func IsEmpty(s string) bool {
	return s == ""
}

func GetTraceID(c *gin.Context) (string, error) {
	traceID := c.GetString(pkg.TraceId)
	if IsEmpty(traceID) {
		return "", errors.New("trace id is empty")
	}
	return traceID, nil
}

// ParseStructEnv binds env vars to struct fields using a mapstructure tag
func ParseStructEnv(cfg interface{}) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if IsEmpty(tag) {
			continue
		}
		if err := viper.BindEnv(tag); err != nil {
			return err
		}
	}
	return viper.Unmarshal(cfg)
}

// FormatConfigErrors logs every failed constraint under its env key and folds them into one error.
func FormatConfigErrors(logger *zap.Logger, err error, cfg interface{}) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	t := reflect.TypeOf(cfg)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	keys := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		key := fe.Field()
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if tag := f.Tag.Get("mapstructure"); !IsEmpty(tag) {
				key = tag
			}
		}
		logger.Error("invalid_config",
			zap.String("key", key),
			zap.String("rule", fe.Tag()),
			zap.String("param", fe.Param()))
		keys = append(keys, fmt.Sprintf("%s (%s)", key, fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(keys, ", "))
}

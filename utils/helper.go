package utils

import (
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/ttacon/libphonenumber"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

/* generic functions */

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func DereferencePtr[T any](ptr *T) T {
	var zero T
	if ptr == nil {
		return zero
	}
	return *ptr
}

func UniqueSlice[T comparable](items []T) []T {
	seen := make(map[T]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// FormatPhoneNumber normalizes a driver's phone number to E.164.
// Region defaults to PY when PHONE_REGION is not set.
func FormatPhoneNumber(raw string) (string, error) {
	region := os.Getenv("PHONE_REGION")
	if region == "" {
		region = "PY"
	}
	num, err := libphonenumber.Parse(raw, region)
	if err != nil {
		return "", err
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}

func IsValidPhoneNumber(raw string) bool {
	_, err := FormatPhoneNumber(raw)
	return err == nil
}

package utils

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"bitbucket.org/andeandataworks/gestion_backend/config"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

/* Redis cache-aside helpers. All of them are no-ops when redis is not configured. */

// store instance, obj should be a pointer
func StoreRedis[T any](obj any, key string) error {
	typeName := GetTypeName[T]()
	return config.SetRedisObject(typeName+":"+key, &obj, GetCacheLifespan())
}

// retrieve instance; returns nil without error on cache miss
func RetrieveRedis[T any](key string) (*T, error) {
	typeName := GetTypeName[T]()
	var obj T
	found, err := config.GetRedisObject(typeName+":"+key, &obj)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &obj, nil
}

func RemoveRedis[T any](key string) error {
	typeName := GetTypeName[T]()
	return config.RemoveRedisKey(typeName + ":" + key)
}

func RedisKeyForId(id int) string {
	return fmt.Sprint(id)
}

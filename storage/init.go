package storage

import (
	"WorkoutMate/storage/database"
	"WorkoutMate/storage/mq"
	"WorkoutMate/storage/redis"
)

// Init 按 Database -> Redis -> MQ 的顺序建立连接
func Init() error {
	if err := database.Init(); err != nil {
		return err
	}

	if err := redis.Init(); err != nil {
		return err
	}

	return mq.Init()
}

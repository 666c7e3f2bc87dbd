package handler

import (
	"github.com/ajjacobi12/friend-finder-sub000/internal/app/session"
	"github.com/ajjacobi12/friend-finder-sub000/internal/configs"
)

type AppDeps struct {
	Coordinator *session.Coordinator
	Gateway     *session.Gateway
	Config      *configs.AppConfig
}

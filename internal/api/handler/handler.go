package handler

import "sort-voting/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth      *AuthHandler
	User      *UserHandler
	Enrolment *EnrolmentHandler
	Activity  *ActivityHandler
	Vote      *VoteHandler
	Result    *ResultHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:      NewAuthHandler(svc.Auth),
		User:      NewUserHandler(svc.User),
		Enrolment: NewEnrolmentHandler(svc.Enrolment),
		Activity:  NewActivityHandler(svc.Activity),
		Vote:      NewVoteHandler(svc.Vote),
		Result:    NewResultHandler(svc.Result, svc.Export),
	}
}

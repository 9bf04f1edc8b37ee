package http

import (
	"time"

	"user-service/internal/domain"
)

type UserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	LastName  string `json:"lastName"`
	Age       int    `json:"age"`
	CreatedAt string `json:"createdAt"`
}

type PageResponse struct {
	Content       []UserResponse `json:"content"`
	Page          int            `json:"page"`
	Size          int            `json:"size"`
	TotalElements int64          `json:"totalElements"`
	TotalPages    int            `json:"totalPages"`
	First         bool           `json:"first"`
	Last          bool           `json:"last"`
}

func userToResponse(user domain.UserView) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		LastName:  user.LastName,
		Age:       user.Age,
		CreatedAt: user.CreatedAt.Format(time.RFC3339Nano),
	}
}

func pageToResponse(page domain.Page[domain.UserView]) PageResponse {
	resp := PageResponse{
		Content:       make([]UserResponse, len(page.Items)),
		Page:          page.Page,
		Size:          page.Size,
		TotalElements: page.TotalItems,
		TotalPages:    page.TotalPages,
		First:         page.Page == 0,
		Last:          page.Page >= page.TotalPages-1,
	}
	for i := range page.Items {
		resp.Content[i] = userToResponse(page.Items[i])
	}
	return resp
}

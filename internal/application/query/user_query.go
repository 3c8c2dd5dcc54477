package query

import "blog-service/internal/application/common"

type UserQueryResult struct {
	Result *common.UserResult `json:"result"`
}

type ProfileQueryResult struct {
	Result *common.ProfileResult `json:"result"`
}

package pagination

// limit and offset of a list request
type Params struct {
	Limit  int
	Offset int
}

// pagination block returned alongside list responses
type Meta struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

func NewMeta(params Params, total int) Meta {
	return Meta{
		Total:   total,
		Limit:   params.Limit,
		Offset:  params.Offset,
		HasMore: params.Offset+params.Limit < total,
	}
}

// clamps limit into (0, maxLimit] and offset to >= 0
func DefaultParams(limit, offset, defaultLimit, maxLimit int) Params {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Params{
		Limit:  limit,
		Offset: offset,
	}
}

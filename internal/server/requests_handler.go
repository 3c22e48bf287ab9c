package server

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/procurehub/backend/constants"
	"github.com/procurehub/backend/internal/entity"
	"github.com/procurehub/backend/internal/repository"
	"github.com/procurehub/backend/internal/services/requests"
)

func (s *Server) createRequest(c *gin.Context) {
	var dto createRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		badRequest(c, err.Error())
		return
	}

	created, err := s.deps.Requests.Create(c.Request.Context(), dto.toEntity(), requests.CreateOptions{
		OfferPath:     dto.OfferPath,
		OfferFilename: dto.OfferFilename,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) getRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	req, err := s.deps.Requests.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (s *Server) listRequests(c *gin.Context) {
	filter, ok := listFilter(c)
	if !ok {
		return
	}
	reqs, err := s.deps.Requests.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	if reqs == nil {
		reqs = make([]*entity.Request, 0)
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs, "count": len(reqs)})
}

func (s *Server) updateRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var dto updateRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		badRequest(c, err.Error())
		return
	}
	updated, err := s.deps.Requests.Update(c.Request.Context(), id, dto.toEntity())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) replaceOrderLines(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var dto replaceOrderLinesDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		badRequest(c, err.Error())
		return
	}
	updated, err := s.deps.Requests.ReplaceOrderLines(c.Request.Context(), id, toLineEntities(dto.OrderLines))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.deps.Requests.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) updateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var dto updateStatusDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		badRequest(c, err.Error())
		return
	}
	updated, err := s.deps.Requests.UpdateStatus(c.Request.Context(), id, constants.RequestStatus(dto.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) requestHistory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rows, err := s.deps.Requests.History(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": rows})
}

func (s *Server) listCommodityGroups(c *gin.Context) {
	groups, err := s.deps.Requests.ListCommodityGroups(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"commodity_groups": groups})
}

func (s *Server) getCommodityGroup(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if id > math.MaxInt32 {
		badRequest(c, "id must be a positive integer")
		return
	}
	group, err := s.deps.Requests.GetCommodityGroup(c.Request.Context(), int32(id))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (s *Server) searchCommodityGroups(c *gin.Context) {
	groups, err := s.deps.Requests.SearchCommodityGroups(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	if groups == nil {
		groups = make([]entity.CommodityGroup, 0)
	}
	c.JSON(http.StatusOK, gin.H{"commodity_groups": groups})
}

func (s *Server) classifyText(c *gin.Context) {
	var dto classifyTextDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		badRequest(c, err.Error())
		return
	}
	result, err := s.deps.Requests.ClassifyText(c.Request.Context(), dto.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) exportRequests(c *gin.Context) {
	filter, ok := listFilter(c)
	if !ok {
		return
	}
	data, err := s.deps.Export.ExportRequestsXLSX(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	filename := fmt.Sprintf("requests-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func listFilter(c *gin.Context) (repository.RequestFilter, bool) {
	var filter repository.RequestFilter
	if v := c.Query("status"); v != "" {
		if !constants.IsValidStatus(v) {
			badRequest(c, fmt.Sprintf("unknown status %q, expected one of %v", v, constants.AllStatuses()))
			return filter, false
		}
		st := constants.RequestStatus(v)
		filter.Status = &st
	}
	if v := c.Query("department"); v != "" {
		filter.Department = &v
	}
	return filter, true
}

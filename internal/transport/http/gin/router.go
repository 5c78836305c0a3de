package httpgin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kirinyoku/rail-go/internal/domain"
	postgresrepo "github.com/kirinyoku/rail-go/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/rail-go/internal/repository/redis"
	"github.com/kirinyoku/rail-go/internal/service"
	"github.com/kirinyoku/rail-go/internal/service/accounts"
	"github.com/kirinyoku/rail-go/internal/service/auth"
	"github.com/kirinyoku/rail-go/internal/service/booking"
	"github.com/kirinyoku/rail-go/internal/service/catalog"
	"github.com/kirinyoku/rail-go/internal/token"
)

func NewRouter(
	svcs *service.Services,
	tokens *token.Manager,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := AuthMiddleware(tokens)
	staffOnly := RequireRole(domain.RoleStaff)
	customerOnly := RequireRole(domain.RoleCustomer)

	api := r.Group("/api")

	// auth
	api.POST("/auth/register", handleRegister(svcs))
	api.POST("/auth/login", handleLogin(svcs))
	api.POST("/auth/staff", authed, staffOnly, handleRegisterStaff(svcs))
	api.PUT("/auth/password", authed, handleChangePassword(svcs))

	api.GET("/users/me", authed, handleMe(svcs))

	// account administration
	customers := api.Group("/customers", authed, staffOnly)
	{
		customers.GET("", handleListCustomers(svcs))
		customers.GET("/:id", handleGetCustomer(svcs))
		customers.PUT("/:id", handleUpdateCustomer(svcs))
		customers.DELETE("/:id", handleDeleteCustomer(svcs))
	}

	staff := api.Group("/staff", authed, staffOnly)
	{
		staff.GET("", handleListStaff(svcs))
		staff.GET("/:id", handleGetStaff(svcs))
		staff.PUT("/:id", handleUpdateStaff(svcs))
		staff.DELETE("/:id", handleDeleteStaff(svcs))
	}

	// catalog, public reads
	api.GET("/trains", handleListTrains(svcs))
	api.GET("/trains/:id", handleGetTrain(svcs))
	api.GET("/wagons", handleListWagons(svcs))
	api.GET("/wagons/:id", handleGetWagon(svcs))
	api.GET("/seats", handleListSeats(svcs))
	api.GET("/seats/:id", handleGetSeat(svcs))
	api.GET("/schedules", handleSearchSchedules(svcs))
	api.GET("/schedules/:id", handleGetSchedule(svcs))
	api.GET("/schedules/:id/seats", handleScheduleSeats(svcs))

	// catalog, staff writes
	catalogAdmin := api.Group("", authed, staffOnly)
	{
		catalogAdmin.POST("/trains", handleCreateTrain(svcs))
		catalogAdmin.PUT("/trains/:id", handleUpdateTrain(svcs))
		catalogAdmin.DELETE("/trains/:id", handleDeleteTrain(svcs))

		catalogAdmin.POST("/wagons", handleCreateWagon(svcs))
		catalogAdmin.PUT("/wagons/:id", handleUpdateWagon(svcs))
		catalogAdmin.DELETE("/wagons/:id", handleDeleteWagon(svcs))

		catalogAdmin.POST("/schedules", handleCreateSchedule(svcs))
		catalogAdmin.PUT("/schedules/:id", handleUpdateSchedule(svcs))
		catalogAdmin.DELETE("/schedules/:id", handleDeleteSchedule(svcs))
	}

	// tickets
	tickets := api.Group("/tickets", authed)
	{
		tickets.POST("", customerOnly, handlePurchase(svcs, idem))
		tickets.GET("/my", customerOnly, handleMyTickets(svcs))
		tickets.GET("", staffOnly, handleTicketReport(svcs))
		tickets.GET("/:id", handleGetTicket(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Register customer account
// @Param    req body RegisterRequest true "payload"
// @Success  201 {object} SessionResponse
// @Failure  409 {object} ErrorResponse "username or national ID taken"
// @Router   /api/auth/register [post]
func handleRegister(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		sess, err := svcs.Auth.Register(c.Request.Context(), auth.RegisterInput{
			Username:   req.Username,
			Password:   req.Password,
			NationalID: req.NationalID,
			Name:       req.Name,
			Address:    req.Address,
			Phone:      req.Phone,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, sessionResponse(sess))
	}
}

// @Summary  Register staff account
// @Param    req body RegisterStaffRequest true "payload"
// @Success  201 {object} SessionResponse
// @Failure  409 {object} ErrorResponse "username taken"
// @Router   /api/auth/staff [post]
func handleRegisterStaff(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterStaffRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		sess, err := svcs.Auth.RegisterStaff(c.Request.Context(), auth.StaffInput{
			Username: req.Username,
			Password: req.Password,
			Name:     req.Name,
			Address:  req.Address,
			Phone:    req.Phone,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, sessionResponse(sess))
	}
}

// @Summary  Login
// @Param    req body LoginRequest true "payload"
// @Success  200 {object} SessionResponse
// @Failure  401 {object} ErrorResponse
// @Router   /api/auth/login [post]
func handleLogin(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		sess, err := svcs.Auth.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, sessionResponse(sess))
	}
}

// @Summary  Change password
// @Param    req body ChangePasswordRequest true "payload"
// @Success  204
// @Failure  400 {object} ErrorResponse "wrong current password"
// @Router   /api/auth/password [put]
func handleChangePassword(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFrom(c)

		var req ChangePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		err := svcs.Auth.UpdatePassword(
			c.Request.Context(),
			claims.UserID,
			req.CurrentPassword,
			req.NewPassword,
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// @Summary  Current account profile
// @Success  200 {object} accounts.Profile
// @Router   /api/users/me [get]
func handleMe(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFrom(c)

		p, err := svcs.Accounts.Profile(c.Request.Context(), claims.UserID)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, p)
	}
}

// @Summary  List customers
// @Success  200 {array} domain.Customer
// @Router   /api/customers [get]
func handleListCustomers(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Accounts.Customers(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Get customer
// @Param    id path string true "Customer ID (uuid)"
// @Success  200 {object} domain.Customer
// @Router   /api/customers/{id} [get]
func handleGetCustomer(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		out, err := svcs.Accounts.Customer(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Update customer
// @Param    id path string true "Customer ID (uuid)"
// @Param    req body UpdateCustomerRequest true "payload"
// @Success  200 {object} domain.Customer
// @Router   /api/customers/{id} [put]
func handleUpdateCustomer(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req UpdateCustomerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		out, err := svcs.Accounts.UpdateCustomer(c.Request.Context(), id, accounts.CustomerUpdate{
			NationalID: req.NationalID,
			Name:       req.Name,
			Address:    req.Address,
			Phone:      req.Phone,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Delete customer
// @Param    id path string true "Customer ID (uuid)"
// @Success  204
// @Failure  409 {object} ErrorResponse "customer has bookings"
// @Router   /api/customers/{id} [delete]
func handleDeleteCustomer(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		if err := svcs.Accounts.DeleteCustomer(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// @Summary  List staff
// @Success  200 {array} domain.Staff
// @Router   /api/staff [get]
func handleListStaff(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Accounts.StaffMembers(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Get staff member
// @Param    id path string true "Staff ID (uuid)"
// @Success  200 {object} domain.Staff
// @Router   /api/staff/{id} [get]
func handleGetStaff(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		out, err := svcs.Accounts.StaffMember(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Update staff member
// @Param    id path string true "Staff ID (uuid)"
// @Param    req body UpdateStaffRequest true "payload"
// @Success  200 {object} domain.Staff
// @Router   /api/staff/{id} [put]
func handleUpdateStaff(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req UpdateStaffRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		out, err := svcs.Accounts.UpdateStaff(c.Request.Context(), id, accounts.StaffUpdate{
			Name:    req.Name,
			Address: req.Address,
			Phone:   req.Phone,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Delete staff member
// @Param    id path string true "Staff ID (uuid)"
// @Success  204
// @Router   /api/staff/{id} [delete]
func handleDeleteStaff(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		if err := svcs.Accounts.DeleteStaff(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// @Summary  List trains with wagons
// @Success  200 {array} domain.TrainWithWagons
// @Router   /api/trains [get]
func handleListTrains(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Catalog.Trains(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		// ETag + Cache-Control 60s
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=60", true)
	}
}

// @Summary  Get train with wagons
// @Param    id path string true "Train ID (uuid)"
// @Success  200 {object} domain.TrainWithWagons
// @Failure  404 {object} ErrorResponse
// @Router   /api/trains/{id} [get]
func handleGetTrain(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		out, err := svcs.Catalog.Train(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=60", true)
	}
}

// @Summary  Create train
// @Param    req body TrainRequest true "payload"
// @Success  201 {object} domain.Train
// @Router   /api/trains [post]
func handleCreateTrain(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TrainRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		out, err := svcs.Catalog.CreateTrain(c.Request.Context(), catalog.TrainInput{
			Name:        req.Name,
			Description: req.Description,
			Class:       domain.TrainClass(req.Class),
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, out)
	}
}

// @Summary  Update train
// @Param    id path string true "Train ID (uuid)"
// @Param    req body TrainRequest true "payload"
// @Success  200 {object} domain.Train
// @Router   /api/trains/{id} [put]
func handleUpdateTrain(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req TrainRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		out, err := svcs.Catalog.UpdateTrain(c.Request.Context(), id, catalog.TrainInput{
			Name:        req.Name,
			Description: req.Description,
			Class:       domain.TrainClass(req.Class),
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Delete train
// @Param    id path string true "Train ID (uuid)"
// @Success  204
// @Failure  409 {object} ErrorResponse "train has bookings"
// @Router   /api/trains/{id} [delete]
func handleDeleteTrain(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		if err := svcs.Catalog.DeleteTrain(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// @Summary  List wagons
// @Param    train_id query string false "filter by train (uuid)"
// @Success  200 {array} domain.Wagon
// @Router   /api/wagons [get]
func handleListWagons(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		trainID, ok := parseUUIDQuery(c, "train_id")
		if !ok {
			return
		}

		out, err := svcs.Catalog.Wagons(c.Request.Context(), trainID)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=60", true)
	}
}

// @Summary  Get wagon with seats
// @Param    id path string true "Wagon ID (uuid)"
// @Success  200 {object} domain.WagonWithSeats
// @Router   /api/wagons/{id} [get]
func handleGetWagon(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		out, err := svcs.Catalog.Wagon(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=60", true)
	}
}

// @Summary  Create wagon and its seats
// @Param    req body CreateWagonRequest true "payload"
// @Success  201 {object} domain.WagonWithSeats
// @Router   /api/wagons [post]
func handleCreateWagon(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateWagonRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		trainID, err := uuid.Parse(req.TrainID)
		if err != nil {
			badRequest(c, "invalid train_id")
			return
		}

		out, err := svcs.Catalog.CreateWagon(c.Request.Context(), catalog.WagonInput{
			TrainID:  trainID,
			Name:     req.Name,
			Capacity: req.Capacity,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, out)
	}
}

// @Summary  Update wagon
// @Param    id path string true "Wagon ID (uuid)"
// @Param    req body UpdateWagonRequest true "payload"
// @Success  204
// @Router   /api/wagons/{id} [put]
func handleUpdateWagon(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req UpdateWagonRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		trainID, err := uuid.Parse(req.TrainID)
		if err != nil {
			badRequest(c, "invalid train_id")
			return
		}

		if err := svcs.Catalog.UpdateWagon(c.Request.Context(), id, req.Name, trainID); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// @Summary  Delete wagon
// @Param    id path string true "Wagon ID (uuid)"
// @Success  204
// @Failure  409 {object} ErrorResponse "wagon has booked seats"
// @Router   /api/wagons/{id} [delete]
func handleDeleteWagon(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		if err := svcs.Catalog.DeleteWagon(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// @Summary  List seats
// @Param    wagon_id query string false "filter by wagon (uuid)"
// @Success  200 {array} domain.SeatWithStatus
// @Router   /api/seats [get]
func handleListSeats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		wagonID, ok := parseUUIDQuery(c, "wagon_id")
		if !ok {
			return
		}

		out, err := svcs.Catalog.Seats(c.Request.Context(), wagonID)
		if err != nil {
			respondErr(c, err)
			return
		}

		// ETag + Cache-Control 15s
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=15", true)
	}
}

// @Summary  Get seat
// @Param    id path string true "Seat ID (uuid)"
// @Success  200 {object} domain.SeatWithStatus
// @Router   /api/seats/{id} [get]
func handleGetSeat(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		out, err := svcs.Catalog.Seat(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Search schedules
// @Param    origin query string false "origin substring"
// @Param    destination query string false "destination substring"
// @Param    date query string false "departure day (YYYY-MM-DD)"
// @Param    class query string false "train class"
// @Success  200 {array} domain.ScheduleWithTrain
// @Router   /api/schedules [get]
func handleSearchSchedules(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := postgresrepo.ScheduleFilter{
			Origin:      c.Query("origin"),
			Destination: c.Query("destination"),
			Class:       domain.TrainClass(c.Query("class")),
		}

		if d := c.Query("date"); d != "" {
			day, err := time.Parse("2006-01-02", d)
			if err != nil {
				badRequest(c, "invalid date (YYYY-MM-DD)")
				return
			}
			f.Date = &day
		}

		out, err := svcs.Catalog.SearchSchedules(c.Request.Context(), f)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=15", true)
	}
}

// @Summary  Get schedule with train
// @Param    id path string true "Schedule ID (uuid)"
// @Success  200 {object} domain.ScheduleWithTrain
// @Failure  404 {object} ErrorResponse
// @Router   /api/schedules/{id} [get]
func handleGetSchedule(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		out, err := svcs.Catalog.Schedule(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=60", true)
	}
}

// @Summary  Available seats for a schedule
// @Param    id path string true "Schedule ID (uuid)"
// @Success  200 {array} domain.SeatWithWagon
// @Failure  404 {object} ErrorResponse
// @Router   /api/schedules/{id}/seats [get]
func handleScheduleSeats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		out, err := svcs.Booking.AvailableSeats(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		// ETag + Cache-Control 15s
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=15", true)
	}
}

// @Summary  Create schedule
// @Param    req body ScheduleRequest true "payload"
// @Success  201 {object} domain.Schedule
// @Router   /api/schedules [post]
func handleCreateSchedule(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, ok := bindScheduleInput(c)
		if !ok {
			return
		}

		out, err := svcs.Catalog.CreateSchedule(c.Request.Context(), in)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, out)
	}
}

// @Summary  Update schedule
// @Param    id path string true "Schedule ID (uuid)"
// @Param    req body ScheduleRequest true "payload"
// @Success  200 {object} domain.Schedule
// @Router   /api/schedules/{id} [put]
func handleUpdateSchedule(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		in, ok := bindScheduleInput(c)
		if !ok {
			return
		}

		out, err := svcs.Catalog.UpdateSchedule(c.Request.Context(), id, in)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Delete schedule
// @Param    id path string true "Schedule ID (uuid)"
// @Success  204
// @Failure  409 {object} ErrorResponse "schedule has bookings"
// @Router   /api/schedules/{id} [delete]
func handleDeleteSchedule(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		if err := svcs.Catalog.DeleteSchedule(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// @Summary  Purchase tickets (idempotent)
// @Param    req body PurchaseRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} domain.BookingWithDetails
// @Failure  400 {object} ErrorResponse "not enough seats (carries available count)"
// @Failure  409 {object} ErrorResponse "seats conflict / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /api/tickets [post]
func handlePurchase(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFrom(c)

		var req PurchaseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		scheduleID, err := uuid.Parse(req.ScheduleID)
		if err != nil {
			badRequest(c, "invalid schedule_id")
			return
		}

		customer, ok := resolveCustomer(c, svcs.Accounts.Profile, claims.UserID)
		if !ok {
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemPurchase(scheduleID, idemKey)

			if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
				return
			}

			locked, err := idem.AcquireLock(c.Request.Context(), idemStorageKey, 60*time.Second)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		passengers := make([]domain.Passenger, len(req.Passengers))
		for i, p := range req.Passengers {
			passengers[i] = domain.Passenger{
				NationalID: p.NationalID,
				Name:       p.Name,
			}
		}

		rlKey := "ip:" + c.ClientIP()

		created, err := svcs.Booking.Purchase(
			c.Request.Context(),
			customer.ID,
			scheduleID,
			passengers,
			rlKey,
		)
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			if isRateLimitedErr(err) {
				c.Header("Retry-After", "60")
				c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: err.Error()})
				return
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" && idem != nil {
			b, _ := json.Marshal(created)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, created)
	}
}

// @Summary  My tickets
// @Success  200 {array} domain.BookingWithDetails
// @Router   /api/tickets/my [get]
func handleMyTickets(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFrom(c)

		customer, ok := resolveCustomer(c, svcs.Accounts.Profile, claims.UserID)
		if !ok {
			return
		}

		out, err := svcs.Booking.MyTickets(c.Request.Context(), customer.ID)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Get ticket
// @Param    id path string true "Booking ID (uuid)"
// @Success  200 {object} domain.BookingWithDetails
// @Failure  403 {object} ErrorResponse "not the booking owner"
// @Failure  404 {object} ErrorResponse
// @Router   /api/tickets/{id} [get]
func handleGetTicket(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFrom(c)

		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		out, err := svcs.Booking.Ticket(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		if claims.Role != domain.RoleStaff {
			customer, ok := resolveCustomer(c, svcs.Accounts.Profile, claims.UserID)
			if !ok {
				return
			}

			if customer.ID != out.CustomerID {
				c.JSON(http.StatusForbidden, ErrorResponse{Error: "not the booking owner"})
				return
			}
		}

		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Ticket report
// @Param    date query string false "single day (YYYY-MM-DD)"
// @Param    month query string false "whole month (YYYY-MM)"
// @Success  200 {object} domain.TicketReport
// @Failure  400 {object} ErrorResponse "bad or conflicting filter"
// @Router   /api/tickets [get]
func handleTicketReport(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		from, to, err := reportRange(c.Query("date"), c.Query("month"))
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		out, err := svcs.Booking.AllTickets(c.Request.Context(), from, to)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, out)
	}
}

// reportRange converts a day (2006-01-02) or month (2006-01) filter into a
// half-open [from, to) interval in UTC. Both empty means the whole history.
func reportRange(date, month string) (from, to *time.Time, err error) {
	switch {
	case date != "" && month != "":
		return nil, nil, errors.New("date and month are mutually exclusive")
	case date != "":
		day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
		if err != nil {
			return nil, nil, errors.New("invalid date (YYYY-MM-DD)")
		}
		next := day.AddDate(0, 0, 1)
		return &day, &next, nil
	case month != "":
		first, err := time.ParseInLocation("2006-01", month, time.UTC)
		if err != nil {
			return nil, nil, errors.New("invalid month (YYYY-MM)")
		}
		next := first.AddDate(0, 1, 0)
		return &first, &next, nil
	}

	return nil, nil, nil
}

// --- Helpers ---

type profileLoader func(ctx context.Context, userID uuid.UUID) (*accounts.Profile, error)

// resolveCustomer loads the caller's customer profile. A load failure gets the
// usual error mapping; only an account that genuinely has no customer profile
// is answered with 403.
func resolveCustomer(c *gin.Context, load profileLoader, userID uuid.UUID) (*domain.Customer, bool) {
	profile, err := load(c.Request.Context(), userID)
	if err != nil {
		respondErr(c, err)
		return nil, false
	}

	if profile.Customer == nil {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "customer profile required"})
		return nil, false
	}

	return profile.Customer, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseUUIDQuery(c *gin.Context, name string) (*uuid.UUID, bool) {
	s := c.Query(name)
	if s == "" {
		return nil, true
	}

	id, err := uuid.Parse(s)
	if err != nil {
		badRequest(c, "invalid "+name)
		return nil, false
	}
	return &id, true
}

func bindScheduleInput(c *gin.Context) (catalog.ScheduleInput, bool) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return catalog.ScheduleInput{}, false
	}

	trainID, err := uuid.Parse(req.TrainID)
	if err != nil {
		badRequest(c, "invalid train_id")
		return catalog.ScheduleInput{}, false
	}

	departs, err := parseRFC3339(req.DepartsAt)
	if err != nil {
		badRequest(c, "invalid departs_at (RFC3339)")
		return catalog.ScheduleInput{}, false
	}

	arrives, err := parseRFC3339(req.ArrivesAt)
	if err != nil {
		badRequest(c, "invalid arrives_at (RFC3339)")
		return catalog.ScheduleInput{}, false
	}

	return catalog.ScheduleInput{
		TrainID:     trainID,
		Origin:      req.Origin,
		Destination: req.Destination,
		DepartsAt:   departs,
		ArrivesAt:   arrives,
		Price:       req.Price,
	}, true
}

func sessionResponse(s *auth.Session) SessionResponse {
	return SessionResponse{
		Token:    s.Token,
		Username: s.User.Username,
		Role:     s.User.Role,
		Customer: s.Customer,
		Staff:    s.Staff,
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func isRateLimitedErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "rate limited")
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var insufficient booking.InsufficientSeatsError
	if errors.As(err, &insufficient) {
		n := insufficient.Available
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     insufficient.Error(),
			Available: &n,
		})
		return
	}

	switch {
	// auth service
	case errors.Is(err, auth.ErrUsernameTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "username taken"})
		return
	case errors.Is(err, auth.ErrNationalIDTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "national ID already registered"})
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		return
	case errors.Is(err, auth.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	case errors.Is(err, auth.ErrWrongPassword):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "wrong current password"})
		return
	// accounts service
	case errors.Is(err, accounts.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "profile not found"})
		return
	case errors.Is(err, accounts.ErrHasBookings):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "customer has bookings"})
		return
	// catalog service
	case errors.Is(err, catalog.ErrTrainNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "train not found"})
		return
	case errors.Is(err, catalog.ErrWagonNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "wagon not found"})
		return
	case errors.Is(err, catalog.ErrSeatNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "seat not found"})
		return
	case errors.Is(err, catalog.ErrScheduleNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "schedule not found"})
		return
	case errors.Is(err, catalog.ErrInvalidClass):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid train class"})
		return
	case errors.Is(err, catalog.ErrInvalidCapacity):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "capacity must be positive"})
		return
	case errors.Is(err, catalog.ErrInvalidTimes):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "departure must precede arrival"})
		return
	case errors.Is(err, catalog.ErrInUse):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "entity is referenced by bookings"})
		return
	// booking service
	case errors.Is(err, booking.ErrScheduleNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "schedule not found"})
		return
	case errors.Is(err, booking.ErrCustomerNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "customer not found"})
		return
	case errors.Is(err, booking.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "ticket not found"})
		return
	case errors.Is(err, booking.ErrNoPassengers):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "passenger list is empty"})
		return
	case errors.Is(err, booking.ErrSeatsConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "seats already taken"})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

package handlers

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	AuthHandler         *AuthHandler
	UserHandler         *UserHandler
	IncidentHandler     *IncidentHandler
	AllocationHandler   *AllocationHandler
	NotificationHandler *NotificationHandler
	UploadHandler       *UploadHandler
	SupportHandler      *SupportHandler
}

package users

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/librisvault/librisvault-backend/pkg/enums"
)

func TestCreateUserDTOToModelNormalizes(t *testing.T) {
	user := CreateUserDTO{Email: "  Reader@Example.COM ", FirstName: " Ada ", LastName: "Lovelace"}.ToModel()
	require.Equal(t, "reader@example.com", user.Email)
	require.Equal(t, "Ada", user.FirstName)
	require.Equal(t, enums.RoleCustomer, user.Role)

	seller := CreateUserDTO{Email: "s@example.com", Role: enums.RoleSeller}.ToModel()
	require.Equal(t, enums.RoleSeller, seller.Role)
}

func TestFromModelNil(t *testing.T) {
	require.Nil(t, FromModel(nil))
}
